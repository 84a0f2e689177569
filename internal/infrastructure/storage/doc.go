// Package storage provides the key-value store behind persisted browsing
// state. Memory is used in tests and ephemeral deployments; SQLite
// (modernc.org/sqlite, no cgo) keeps state across restarts in one file.
package storage
