// Package adaptive provides authenticated encryption for ShadowHome key
// material.
//
// The cipher is chosen from the hardware:
//
//   - AES-256-GCM where the CPU accelerates AES (amd64, arm64)
//   - ChaCha20-Poly1305 everywhere else
//
// Keys are derived from passphrases with argon2id. Ciphertexts carry their
// nonce as a prefix, so a sealed blob only needs the key and the cipher type
// to be opened again.
//
// Usage:
//
//	key := adaptive.DeriveKey(passphrase, salt, adaptive.DefaultKDFParams())
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(seed, aad)
//	seed, err := c.Decrypt(sealed, aad)
package adaptive
