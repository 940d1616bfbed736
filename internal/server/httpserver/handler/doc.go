// Package handler provides the HTTP handlers of shadowhome-server.
//
//   - wallet.go: session snapshot and the connect / authenticate /
//     disconnect operations
//   - events.go: transition journal listing
//   - verify.go: challenge preview and stateless signature verification
//   - stream.go: websocket snapshot stream
//   - health.go: liveness and readiness
//
// Every JSON response uses the Response envelope. Domain errors map to
// HTTP status by the last four digits of their code.
package handler
