/*
Package monitoring provides Prometheus metrics for the service.

# Overview

Metrics covers HTTP requests, render mode decisions, relay attempts per
backend, fallback documents, stale fetch results, bridge messages, open tabs
and bridge WebSocket connections. Collectors are registered on an explicit
prometheus.Registerer so tests can use a private registry.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "codetabs")
	// ... relay attempt ...
	timer.Stop(monitoring.OutcomeSuccess)

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
