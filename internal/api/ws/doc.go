// Package ws serves the bridge channel between the shell and the service.
//
// The shell forwards every message a sandboxed document posts as a
// {"type":"bridge","tab_id":..,"message":..} frame. The message goes
// through a browser.Bridge unchanged; only NEBULA_NAVIGATE messages with a
// URL navigate the tab, and the client gets a navigation or ignored frame
// back. Tab events (tab_updated, tab_closed, tab_activated) are pushed on
// the same connection, which is how the shell learns a proxied document
// finished loading.
package ws
