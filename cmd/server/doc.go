// Package main is the nebula command: the compatibility pipeline server
// behind the Nebula browser shell, plus a few tools for poking at the
// pipeline from a terminal.
//
// The server provides:
//   - REST API for classification, relaying, rewriting and tab state
//   - /bridge WebSocket carrying navigation messages from proxied pages
//   - /metrics for Prometheus
//   - Browsing state persisted to SQLite
//
// Configuration:
//   - Environment variables (12-factor), optionally from a dotenv file
//   - CLI flags (override env vars)
//   - POLICY_FILE for the deny list, relay chain and default shortcuts
//
// Usage:
//
//	# Serve on the default port
//	nebula
//
//	# Serve on another port with an env file
//	nebula serve --port 9000 --env-file prod.env
//
//	# Ask the pipeline directly
//	nebula classify https://www.reddit.com
//	nebula fetch reddit.com
//	nebula check
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
