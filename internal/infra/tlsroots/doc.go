// Package tlsroots provides TLS material for the HTTP server and the CLI.
//
//   - roots.go: client trust pools (system roots plus an optional CA file)
//   - keypair.go: server key pair that reloads when its files change
package tlsroots
