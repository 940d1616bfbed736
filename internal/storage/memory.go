package storage

import (
	"context"
	"sync"
)

// MemoryJournal keeps the newest entries in a ring buffer.
type MemoryJournal struct {
	mu     sync.RWMutex
	buf    []Entry
	next   int
	full   bool
	closed bool
}

// NewMemoryJournal creates a journal holding at most max entries.
func NewMemoryJournal(max int) *MemoryJournal {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &MemoryJournal{buf: make([]Entry, max)}
}

// Append implements Journal.
func (j *MemoryJournal) Append(_ context.Context, e Entry) error {
	prepare(&e)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	j.buf[j.next] = e
	j.next = (j.next + 1) % len(j.buf)
	if j.next == 0 {
		j.full = true
	}
	return nil
}

// List implements Journal.
func (j *MemoryJournal) List(_ context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	n := j.next
	if j.full {
		n = len(j.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.buf)) % len(j.buf)
		out = append(out, j.buf[idx])
	}
	return out, nil
}

// Len returns the number of stored entries.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.full {
		return len(j.buf)
	}
	return j.next
}

// Close implements Journal.
func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
