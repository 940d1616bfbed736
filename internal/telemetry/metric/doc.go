// Package metric provides Prometheus metrics for ShadowHome.
//
//   - prometheus.go: Registry with wallet and HTTP metrics, /metrics handler
//   - collector.go: collector reading the live session snapshot
//
// Registry implements the wallet session Observer, so wiring it with
// service.WithObserver is enough to count transitions, operations and
// provider events.
package metric
