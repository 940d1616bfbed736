package domain

import (
	"encoding/json"
	"testing"
)

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state ConnectionState
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateAuthenticating, "authenticating"},
		{StateAuthenticated, "authenticated"},
		{ConnectionState(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestConnectionState_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		State ConnectionState `json:"state"`
	}{StateAuthenticating})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"state":"authenticating"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var out struct {
		State ConnectionState `json:"state"`
	}
	if err := json.Unmarshal([]byte(`{"state":"connected"}`), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.State != StateConnected {
		t.Errorf("State = %v, want connected", out.State)
	}

	if err := json.Unmarshal([]byte(`{"state":"bogus"}`), &out); err == nil {
		t.Error("Unmarshal() should reject unknown state")
	}
}

func TestConnectionState_HasIdentity(t *testing.T) {
	want := map[ConnectionState]bool{
		StateDisconnected:   false,
		StateConnecting:     false,
		StateConnected:      true,
		StateAuthenticating: true,
		StateAuthenticated:  true,
	}
	for s, w := range want {
		if got := s.HasIdentity(); got != w {
			t.Errorf("%s.HasIdentity() = %t, want %t", s, got, w)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ConnectionState
		want     bool
	}{
		{StateDisconnected, StateConnecting, true},
		{StateDisconnected, StateConnected, true},
		{StateDisconnected, StateAuthenticated, false},
		{StateDisconnected, StateAuthenticating, false},
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateAuthenticated, false},
		{StateConnecting, StateDisconnected, true},
		{StateConnected, StateAuthenticating, true},
		{StateConnected, StateAuthenticated, false},
		{StateAuthenticating, StateAuthenticated, true},
		{StateAuthenticating, StateConnected, true},
		{StateAuthenticated, StateConnected, true},
		{StateAuthenticated, StateAuthenticating, true},
		{StateAuthenticated, StateDisconnected, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %t, want %t", tt.from, tt.to, got, tt.want)
		}
	}
}
