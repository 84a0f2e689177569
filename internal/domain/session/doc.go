// Package session persists browsing state for the shell.
//
// State lives in memory and is written through to a storage.Store on every
// change, one JSON value per key:
//
//   - nebula_history: visited pages, newest first, capped
//   - nebula_downloads: saved proxied documents
//   - nebula_shortcuts: speed dial (defaults until the user edits it)
//   - nebula_tabs, nebula_active_tab: open tabs without documents
//   - nebula_scratchpad: one free-text note
//
// Example Usage:
//
//	mgr := session.NewManager(session.Options{Store: store, HistoryLimit: 500})
//	if err := mgr.Load(ctx); err != nil { ... }
//	mgr.RecordVisit(ctx, "https://example.org", "example.org")
package session
