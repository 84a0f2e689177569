// Package client is the outbound HTTP client used to reach CORS relays.
//
// Built on go-resty/resty over the pooled transport from
// hashicorp/go-retryablehttp:
//   - one attempt per call, bounded by a per-attempt timeout
//   - a circuit breaker per relay backend
//   - an optional shared outbound rate limit
//   - response bodies capped at a configured size
//   - trace headers propagated from the request context
//
// Example Usage:
//
//	c := client.New(client.DefaultOptions())
//	resp, err := c.Get(ctx, "codetabs", endpoint, nil)
package client
