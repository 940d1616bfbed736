// Package domain defines the core domain models for ShadowHome.
package domain

import (
	"fmt"
	"time"
)

// Snapshot is the read-only view of a wallet session handed to UI consumers.
type Snapshot struct {
	State           ConnectionState `json:"state"`
	Identity        Identity        `json:"identity,omitempty"`
	IsConnected     bool            `json:"is_connected"`
	IsAuthenticated bool            `json:"is_authenticated"`
	Loading         bool            `json:"loading"`
	LastError       *LastError      `json:"last_error,omitempty"`

	// Auth is the most recent successful authentication for Identity.
	Auth *Authentication `json:"auth,omitempty"`

	// Version increases on every change to the snapshot.
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanAccessDashboard reports whether the gated views may be shown.
func (s Snapshot) CanAccessDashboard() bool {
	return s.IsConnected && s.IsAuthenticated
}

// Validate checks the session invariants. Connecting carries no identity:
// it is only learned when the provider answers.
func (s Snapshot) Validate() error {
	if s.State.HasIdentity() == s.Identity.IsZero() {
		return fmt.Errorf("state %s with identity %q", s.State, s.Identity)
	}
	if s.IsConnected != s.State.HasIdentity() {
		return fmt.Errorf("state %s with is_connected=%t", s.State, s.IsConnected)
	}
	if s.IsAuthenticated != (s.State == StateAuthenticated) {
		return fmt.Errorf("state %s with is_authenticated=%t", s.State, s.IsAuthenticated)
	}
	if s.IsAuthenticated && s.Auth == nil {
		return fmt.Errorf("authenticated without signature")
	}
	return nil
}
