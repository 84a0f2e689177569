// Package middleware provides the HTTP middleware stack of the shell API.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID on every response, kept from the client if sent
//   - Logger: one zap line per request, level chosen by status
//   - Recovery: panic recovery with a JSON 500
//   - CORS: cross-origin access for the shell frontend
//   - RateLimit: per-IP token bucket with idle client cleanup
//   - Compress: gzip via klauspost/compress, skipped for sockets and /metrics
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
