// Package connection talks to a shadowhome-server.
//
//   - http.go: HTTP/HTTPS client that unwraps the response envelope
//   - stream.go: websocket client for the snapshot stream
//
// TLS verification uses the system roots, or a CA bundle given with
// --ca-file (see tlsroots).
package connection
