/*
Package monitoring provides Prometheus metrics for the snippet service.

# Overview

Tracks HTTP traffic, snippet runs, sandbox pool occupancy, service tool
calls, imports, and WebSocket activity. A small JSON snapshot rides
alongside the Prometheus registry for the stats endpoint.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record snippet executions
	metrics.RecordRun("http", outcome.OK, outcome.Duration, outcome.Lines)

	// Mirror sandbox pool stats into gauges
	metrics.WatchPool(pool, 5*time.Second)

	// Time service tool calls
	timer := monitoring.NewTimer(metrics, "playground", "playground.run")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
