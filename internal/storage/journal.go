package storage

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
)

// DefaultMaxEntries bounds a journal when no limit is configured.
const DefaultMaxEntries = 1000

// ErrClosed is returned by a closed journal.
var ErrClosed = errors.New("journal closed")

// Entry is one recorded session transition.
type Entry struct {
	ID       string                 `json:"id"`
	At       time.Time              `json:"at"`
	OpID     string                 `json:"op_id,omitempty"`
	Op       string                 `json:"op"`
	From     domain.ConnectionState `json:"from"`
	To       domain.ConnectionState `json:"to"`
	Identity domain.Identity        `json:"identity,omitempty"`
	Code     string                 `json:"code,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Journal stores entries in append order.
type Journal interface {
	// Append stores e. An empty ID is replaced with a fresh ULID.
	Append(ctx context.Context, e Entry) error

	// List returns up to limit entries, newest first. A limit <= 0 returns
	// every entry.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Close releases the journal.
	Close() error
}

// prepare fills the generated fields of e.
func prepare(e *Entry) {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
}
