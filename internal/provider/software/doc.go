// Package software implements an in-process ed25519 wallet.
//
// Wallet satisfies service.Provider with the behaviour of a browser wallet
// extension: it emits connect, disconnect and accountChanged events, asks an
// Approver before connecting or signing, and remembers whether the
// application was trusted so that OnlyIfTrusted connects succeed silently.
// Identities are base58 public keys.
//
// Keys can be kept in an encrypted keystore file (argon2id + AEAD, see
// SaveKeystore and LoadKeystore).
package software
