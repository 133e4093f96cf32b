// Package main is the entry point for the exprbox server.
//
// exprbox evaluates sandboxed JavaScript expressions against workflow
// data snapshots. Expression code sees the data graph through lazy
// proxies; every read crosses a resolver boundary, so only the paths an
// expression actually touches are materialized.
//
// The server provides:
//   - REST API for evaluating expressions and managing snapshots
//   - a data-plane API other instances can resolve against
//   - WebSocket preview sessions for live expression editing
//   - Prometheus metrics and structured logs
//
// Configuration:
//   - Environment variables (EXPRBOX_* prefix)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Serve on port 8700 with snapshots loaded from ./data
//	./server -port 8700 -snapshots ./data -watch
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
