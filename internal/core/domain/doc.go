// Package domain defines the core domain models for ShadowHome.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - ConnectionState: the wallet session state machine states and edges
//   - Identity: the opaque account identifier reported by a provider
//   - ProviderEvent: validated wallet events (tagged variant)
//   - Challenge: the timestamped message a wallet signs to authenticate
//   - Snapshot: the read-only session view and its invariants
//   - Errors: domain error codes and the wallet error taxonomy
package domain
