// Package domain defines the core domain models for ShadowHome.
package domain

import (
	"strings"
	"unicode"
)

// MaxIdentityLength bounds identities accepted from providers.
// Base58 ed25519 keys are 32-44 characters; other wallets stay well below this.
const MaxIdentityLength = 128

// Identity is the public account identifier reported by a wallet provider.
// It is opaque to the session; only pkg/sigverify interprets it.
type Identity string

// String returns the identity as a string.
func (id Identity) String() string {
	return string(id)
}

// IsZero reports whether the identity is empty.
func (id Identity) IsZero() bool {
	return id == ""
}

// Mask returns a shortened form for logs and UI, e.g. "ABCD...WXYZ".
func (id Identity) Mask() string {
	s := string(id)
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// ParseIdentity validates a provider-supplied identity.
func ParseIdentity(raw string) (Identity, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidArgument.WithDetails("identity is empty")
	}
	if len(s) > MaxIdentityLength {
		return "", ErrInvalidArgument.WithDetails("identity too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", ErrInvalidArgument.WithDetails("identity contains invalid characters")
		}
	}
	return Identity(s), nil
}
