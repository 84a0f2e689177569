// Package server assembles the service from configuration.
//
// Server Lifecycle:
//  1. Build the logger, metrics registry and tracer
//  2. Load the policy file and open the key-value store
//  3. Load persisted browsing state and restore the tabs
//  4. Build the compatibility pipeline
//  5. Mount middleware, REST handlers, /bridge and /metrics
//  6. Serve until the context is cancelled, then drain
//  7. Close stops fetches, then releases the store and tracer
//
// Example Usage:
//
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//	return srv.Run(ctx)
package server
