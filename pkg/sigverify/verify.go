// Package sigverify checks wallet signatures over authentication challenges.
package sigverify

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidPublicKey indicates an identity that is not a base58 ed25519 key.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidSignature indicates a signature that cannot be decoded to 64 bytes.
	ErrInvalidSignature = errors.New("invalid signature encoding")
)

// Verify reports whether signature is a valid ed25519 signature of message
// by the account identity. It returns false on any malformed input.
func Verify(signature, message []byte, identity string) bool {
	pub, err := DecodePublicKey(identity)
	if err != nil {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, signature)
}

// VerifyString verifies a signature over the UTF-8 bytes of message.
func VerifyString(signature []byte, message, identity string) bool {
	return Verify(signature, []byte(message), identity)
}

// VerifyEncoded verifies a textual signature (see DecodeSignature).
func VerifyEncoded(signature, message, identity string) bool {
	sig, err := DecodeSignature(signature)
	if err != nil {
		return false
	}
	return VerifyString(sig, message, identity)
}

// DecodePublicKey decodes a base58 identity into an ed25519 public key.
func DecodePublicKey(identity string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(identity))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePublicKey returns the base58 identity of pub.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// EncodeSignature returns the base58 form wallets usually display.
func EncodeSignature(sig []byte) string {
	return base58.Encode(sig)
}

// DecodeSignature accepts a 64-byte signature as hex, base58 or base64.
func DecodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidSignature
	}

	if len(s) == 2*ed25519.SignatureSize {
		if raw, err := hex.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	if raw, err := base58.Decode(s); err == nil && len(raw) == ed25519.SignatureSize {
		return raw, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(s); err == nil && len(raw) == ed25519.SignatureSize {
			return raw, nil
		}
	}
	return nil, ErrInvalidSignature
}
