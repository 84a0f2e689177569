// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for log shippers
//   - Development: colored console output
//
// Components take a *zap.Logger and name themselves with Named, so a
// relay failure reads as "proxy.fetch" in the output. Common field keys
// are exported as helpers (Tab, URL, Backend) to keep them consistent.
//
//	logger := logging.NewDefault()
//	logger.Info("server starting", zap.String("addr", addr))
//	logger.Named("proxy").Debug("relay failed", logging.Backend("codetabs"), zap.Error(err))
package logging
