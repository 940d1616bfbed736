package storage

import (
	"context"
	"time"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

// appendTimeout bounds one journal write from the session goroutine.
const appendTimeout = 2 * time.Second

// Recorder appends every session transition to a Journal.
// Write failures are logged and otherwise ignored.
type Recorder struct {
	journal Journal
	logger  logger.Logger
}

var _ service.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to j.
func NewRecorder(j Journal, l logger.Logger) *Recorder {
	if l == nil {
		l = logger.Default()
	}
	return &Recorder{journal: j, logger: l.With("component", "journal")}
}

// OnTransition implements service.Observer.
func (r *Recorder) OnTransition(t service.Transition) {
	e := Entry{
		At:       t.At.UTC(),
		OpID:     t.OpID,
		Op:       t.Cause,
		From:     t.From,
		To:       t.To,
		Identity: t.Identity,
	}
	if t.Err != nil {
		e.Code = t.Err.Code
		e.Message = t.Err.Message
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := r.journal.Append(ctx, e); err != nil {
		r.logger.Warn("journal append failed", "op", t.Cause, "error", err)
	}
}

// OnOperation implements service.Observer.
func (r *Recorder) OnOperation(service.Operation, error, time.Duration) {}

// OnProviderEvent implements service.Observer.
func (r *Recorder) OnProviderEvent(domain.ProviderEvent) {}
