// Package domain defines the core domain models for ShadowHome.
package domain

import "fmt"

// ConnectionState is the wallet session state.
type ConnectionState int

// Wallet session states. Connecting and Authenticating are transient and
// last for the duration of the corresponding provider call.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
)

var stateNames = [...]string{
	StateDisconnected:   "disconnected",
	StateConnecting:     "connecting",
	StateConnected:      "connected",
	StateAuthenticating: "authenticating",
	StateAuthenticated:  "authenticated",
}

// String returns the lowercase state name.
func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnectionState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid connection state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ConnectionState) UnmarshalText(text []byte) error {
	state, err := ParseConnectionState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// ParseConnectionState parses a state name.
func ParseConnectionState(name string) (ConnectionState, error) {
	for i, n := range stateNames {
		if n == name {
			return ConnectionState(i), nil
		}
	}
	return StateDisconnected, ErrInvalidArgument.WithDetails("unknown connection state: " + name)
}

// HasIdentity reports whether an identity must be known in this state.
func (s ConnectionState) HasIdentity() bool {
	return s == StateConnected || s == StateAuthenticating || s == StateAuthenticated
}

// IsTransient reports whether the state only exists while a provider call is in flight.
func (s ConnectionState) IsTransient() bool {
	return s == StateConnecting || s == StateAuthenticating
}

// CanTransition reports whether from -> to is a legal edge of the state machine.
func CanTransition(from, to ConnectionState) bool {
	if from == to {
		return true
	}
	// Disconnect (user or provider) is legal from anywhere.
	if to == StateDisconnected {
		return true
	}
	switch from {
	case StateDisconnected:
		// connect() or a provider connect event (silent reconnect).
		return to == StateConnecting || to == StateConnected
	case StateConnecting:
		// Success, or an account change that overtakes the call.
		return to == StateConnected
	case StateConnected:
		return to == StateAuthenticating
	case StateAuthenticating:
		return to == StateAuthenticated || to == StateConnected
	case StateAuthenticated:
		// Account changed, or a fresh authenticate().
		return to == StateConnected || to == StateAuthenticating
	}
	return false
}
