// Package sigverify checks wallet signatures over authentication challenges.
//
// Identities are base58-encoded ed25519 public keys (the Solana account
// format). Verification never returns an error: any malformed input simply
// fails to verify.
package sigverify
