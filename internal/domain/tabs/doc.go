// Package tabs is the content host: the open tabs, which one is active, and
// the document each one shows.
//
// Navigation classifies the URL and, for proxied sites, fetches through the
// relay chain in the background. Each tab carries a generation counter that
// every navigation bumps. A fetch remembers the generation it started with
// and its result is committed only if that generation is still current, so
// a slow early fetch can never replace the page a later navigation loaded.
// Superseded fetches are also cancelled, which stops them at the next relay.
package tabs
