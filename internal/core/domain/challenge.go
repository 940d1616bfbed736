// Package domain defines the core domain models for ShadowHome.
package domain

import (
	"strings"
	"time"
)

// DefaultChallengeGreeting is the fixed text preceding the timestamp.
const DefaultChallengeGreeting = "Welcome to ShadowHome Ledger OS!\n\n" +
	"Sign this message to authenticate your identity and access your home's brain."

// ChallengeEncoding is the display hint passed to the provider with the challenge bytes.
const ChallengeEncoding = "utf8"

// challengeTimeLayout matches JavaScript's Date.toISOString output.
const challengeTimeLayout = "2006-01-02T15:04:05.000Z"

// Challenge is the message a wallet signs to prove control of an identity.
// The embedded timestamp makes every challenge unique.
type Challenge struct {
	Message  string    `json:"message"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewChallenge builds a challenge for the given instant.
// An empty greeting falls back to DefaultChallengeGreeting.
func NewChallenge(greeting string, now time.Time) Challenge {
	if strings.TrimSpace(greeting) == "" {
		greeting = DefaultChallengeGreeting
	}
	issued := now.UTC()
	return Challenge{
		Message:  greeting + "\n\nTimestamp: " + issued.Format(challengeTimeLayout),
		IssuedAt: issued,
	}
}

// Bytes returns the exact UTF-8 bytes that are signed.
func (c Challenge) Bytes() []byte {
	return []byte(c.Message)
}

// SignedMessage is what a provider returns from a sign request.
type SignedMessage struct {
	Signature []byte   `json:"signature"`
	Identity  Identity `json:"public_key"`
}

// Authentication records a successful challenge signature.
type Authentication struct {
	Challenge Challenge `json:"challenge"`
	Signature []byte    `json:"signature"`
	SignedAt  time.Time `json:"signed_at"`
}
