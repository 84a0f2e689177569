/*
Package resilience provides the circuit breaker that guards each relay backend.

# Overview

Relay backends are free third-party services. A backend that keeps failing is
skipped immediately for a cool-down period instead of costing every navigation
a full timeout before the fetch chain moves on.

# Usage

	breaker := resilience.New("codetabs", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return relay.Get(ctx, target)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open

Requests abandoned through their context (a superseded navigation) are not
counted either way.
*/
package resilience
