// Package main provides the entry point for shadowhome-server.
//
// The server owns one wallet session and exposes it over HTTP:
//
//   - /v1/wallet routes to connect, authenticate and disconnect
//   - a websocket stream of session snapshots
//   - a websocket bridge that browser wallet pages attach to
//   - /health, /ready and Prometheus metrics
//
// Usage:
//
//	shadowhome-server [flags]
//	shadowhome-server --config /path/to/config.yaml
package main
