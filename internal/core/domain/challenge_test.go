package domain

import (
	"strings"
	"testing"
	"time"
)

func TestNewChallenge(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.FixedZone("X", 3600))
	c := NewChallenge("", now)

	want := DefaultChallengeGreeting + "\n\nTimestamp: 2025-03-14T08:26:53.589Z"
	if c.Message != want {
		t.Errorf("Message = %q, want %q", c.Message, want)
	}
	if !c.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", c.IssuedAt, now)
	}
	if string(c.Bytes()) != c.Message {
		t.Error("Bytes() must be the UTF-8 message")
	}
}

func TestNewChallenge_CustomGreeting(t *testing.T) {
	c := NewChallenge("Hello home", time.Unix(0, 0))
	if !strings.HasPrefix(c.Message, "Hello home\n\nTimestamp: ") {
		t.Errorf("Message = %q", c.Message)
	}
}

func TestNewChallenge_UniquePerInstant(t *testing.T) {
	base := time.Now()
	a := NewChallenge("", base)
	b := NewChallenge("", base.Add(time.Millisecond))
	if a.Message == b.Message {
		t.Error("challenges issued at different instants must differ")
	}
}
