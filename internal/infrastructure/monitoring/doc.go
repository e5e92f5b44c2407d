/*
Package monitoring provides metrics collection for termdock.

# Overview

This package implements Prometheus-based metrics collection for the
terminal engine and its host adapter: shell spawns and exits, output
volume, open sessions, snapshot writes, link detection, HTTP requests and
WebSocket traffic.

Each Metrics owns a private registry, so tests and embedded hosts can build
as many collectors as they like.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Record engine events
	metrics.RecordSpawn("ok")
	metrics.RecordExit(0)

	// Time operations
	timer := monitoring.NewTimer(metrics, "storage", "write")
	// ... perform operation ...
	timer.StopErr(err)
*/
package monitoring
