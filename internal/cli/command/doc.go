// Package command provides CLI command definitions for shadowhome-cli.
//
// Commands talk to a running shadowhome-server over its HTTP API:
//
//   - wallet: status, connect, authenticate, disconnect, challenge, events, watch
//   - verify: check a detached signature
//   - keystore: create and inspect software wallet keystores
//   - config: CLI profiles and server config validation
//   - system: health, readiness and version
package command
