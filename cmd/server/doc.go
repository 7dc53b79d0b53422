// Package main is the entry point for the interprep playground server.
//
// The server evaluates user-submitted JavaScript snippets inside pooled
// goja runtimes and exposes the results over REST and WebSocket, plus a
// catalog of teaching snippets, a run-history store, and a remote
// snippet importer.
//
// The server provides:
//   - POST /run and /check for snippet evaluation
//   - Catalog browsing, search, and per-snippet runs
//   - Run history with stats, export, and pruning
//   - WebSocket streaming for interactive sessions
//   - Service provider registry passthrough
//   - Prometheus metrics, rate limiting, admin auth
//
// Configuration:
//   - Code defaults, then an optional TOML file, then environment
//     variables (12-factor)
//   - CLI flags override the port and config path
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# With a config file
//	./server -config ./interprep.toml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
