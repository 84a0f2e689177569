// Package http provides the REST API of the shell using the Gin framework.
//
// Endpoints:
//   - Service: / and /health
//   - Pipeline: /classify, /address, /proxy, /rewrite
//   - Tabs: /tabs, /tabs/:id and its activate, navigate, refresh, proxy,
//     document and download actions
//   - Connectivity: /connectivity
//   - Browsing state: /history, /shortcuts, /downloads, /notes
//   - Shell logs: /logs
//
// Domain errors map to status codes in one place (statusFor): unknown tabs
// and entries are 404, navigation while offline is 409, bad input is 400.
//
// Example Usage:
//
//	handlers := http.NewHandlers(http.Options{Pipeline: p, Tabs: tabs, Session: sess})
//	handlers.Register(router)
package http
