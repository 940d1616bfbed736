package storage

import (
	"context"
	"testing"
)

func TestMemoryJournal(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		max      int
		appends  int
		limit    int
		wantOps  []string
		wantSize int
	}{
		{"empty", 3, 0, 0, nil, 0},
		{"partial", 3, 2, 0, []string{"op-1", "op-0"}, 2},
		{"exactly full", 3, 3, 0, []string{"op-2", "op-1", "op-0"}, 3},
		{"wrapped", 3, 7, 0, []string{"op-6", "op-5", "op-4"}, 3},
		{"limit", 3, 7, 2, []string{"op-6", "op-5"}, 3},
		{"limit above size", 5, 2, 10, []string{"op-1", "op-0"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewMemoryJournal(tt.max)
			for i := 0; i < tt.appends; i++ {
				if err := j.Append(ctx, entry(i)); err != nil {
					t.Fatal(err)
				}
			}
			got, err := j.List(ctx, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.wantOps) {
				t.Fatalf("List() returned %d entries, want %d", len(got), len(tt.wantOps))
			}
			for i, want := range tt.wantOps {
				if got[i].Op != want {
					t.Errorf("List()[%d].Op = %s, want %s", i, got[i].Op, want)
				}
			}
			if j.Len() != tt.wantSize {
				t.Errorf("Len() = %d, want %d", j.Len(), tt.wantSize)
			}
		})
	}
}

func TestMemoryJournal_Defaults(t *testing.T) {
	j := NewMemoryJournal(0)
	if len(j.buf) != DefaultMaxEntries {
		t.Errorf("capacity = %d, want %d", len(j.buf), DefaultMaxEntries)
	}

	j.Append(context.Background(), Entry{Op: "x"})
	got, _ := j.List(context.Background(), 1)
	if got[0].ID == "" || got[0].At.IsZero() {
		t.Errorf("generated fields missing: %+v", got[0])
	}
}

func TestMemoryJournal_Closed(t *testing.T) {
	j := NewMemoryJournal(2)
	j.Close()
	if err := j.Append(context.Background(), entry(0)); err != ErrClosed {
		t.Errorf("Append() error = %v, want ErrClosed", err)
	}
	if _, err := j.List(context.Background(), 0); err != ErrClosed {
		t.Errorf("List() error = %v, want ErrClosed", err)
	}
}
