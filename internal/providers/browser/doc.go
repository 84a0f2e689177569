/*
Package browser is the compatibility pipeline behind proxied tabs.

# Overview

Many sites refuse to be framed. For those, the shell renders a copy of the
page fetched through public CORS relays instead of the site itself:

 1. Classifier decides DIRECT or PROXIED from a policy deny-list, with
    carve-outs for embed-tolerant URLs (google.com/search?igu=1).
 2. Fetcher tries each relay in order with its own breaker and timeout,
    and falls back to a local "Connection Failed" page.
 3. Rewrite injects a <base> for relative URLs and a click interception
    script that posts NEBULA_NAVIGATE messages to the parent frame.
 4. Bridge accepts exactly those messages and re-enters navigation.

FetchViaProxy and Rewrite never fail. Everything that can go wrong with a
relay (transport errors, bad statuses, empty or binary bodies, broken
envelopes, open circuits, timeouts) just moves on to the next one.

# Relays

Relay response shapes are adapters: RawPayload for relays that return the
page bytes, EnvelopePayload for relays that wrap them in JSON.

# Sandbox

The sandbox subpackage runs the interception script in goja against a
simulated document. Provider.SelfCheck uses it at startup and from the
health endpoint.
*/
package browser
