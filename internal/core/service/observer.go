// Package service provides domain services for ShadowHome.
package service

import (
	"time"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
)

// Operation names a caller-initiated wallet operation.
type Operation string

// Wallet operations.
const (
	OpConnect      Operation = "connect"
	OpAuthenticate Operation = "authenticate"
	OpDisconnect   Operation = "disconnect"
)

// Transition describes one change of session state.
type Transition struct {
	OpID     string
	Cause    string // operation name, "event:<name>" or "restore"
	From     domain.ConnectionState
	To       domain.ConnectionState
	Identity domain.Identity
	Err      *domain.LastError
	At       time.Time
}

// Observer receives session activity. Methods are called from the session
// goroutine and must return quickly; they must not call back into the
// session's operations.
type Observer interface {
	OnTransition(t Transition)
	OnOperation(op Operation, err error, elapsed time.Duration)
	OnProviderEvent(ev domain.ProviderEvent)
}

// Observers fans out to several observers in order.
type Observers []Observer

// OnTransition implements Observer.
func (o Observers) OnTransition(t Transition) {
	for _, obs := range o {
		obs.OnTransition(t)
	}
}

// OnOperation implements Observer.
func (o Observers) OnOperation(op Operation, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.OnOperation(op, err, elapsed)
	}
}

// OnProviderEvent implements Observer.
func (o Observers) OnProviderEvent(ev domain.ProviderEvent) {
	for _, obs := range o {
		obs.OnProviderEvent(ev)
	}
}

type nopObserver struct{}

func (nopObserver) OnTransition(Transition)                     {}
func (nopObserver) OnOperation(Operation, error, time.Duration) {}
func (nopObserver) OnProviderEvent(domain.ProviderEvent)        {}
