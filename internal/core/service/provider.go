// Package service provides domain services for ShadowHome.
package service

import (
	"context"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
)

// ConnectOptions are passed to Provider.Connect.
type ConnectOptions struct {
	// OnlyIfTrusted asks the wallet to connect without prompting, and to
	// fail if the application was not approved before.
	OnlyIfTrusted bool
}

// Provider is the wallet capability supplied by the host environment.
// Any call may fail, and events may be emitted from any goroutine at any
// time, including while another call is in flight.
type Provider interface {
	// Connect requests a connection and returns the account identity.
	Connect(ctx context.Context, opts ConnectOptions) (domain.Identity, error)

	// Disconnect ends the provider-side session.
	Disconnect(ctx context.Context) error

	// SignMessage asks the wallet to sign message. encoding is a display hint.
	SignMessage(ctx context.Context, message []byte, encoding string) (*domain.SignedMessage, error)

	// On registers a callback for "connect", "disconnect" or "accountChanged".
	// Payloads are untyped; WalletSession validates them with domain.DecodeEvent.
	On(event string, cb func(payload any))

	// RemoveAllListeners drops every registered callback.
	RemoveAllListeners()

	// IsConnected reports the provider-side connection flag.
	IsConnected() bool

	// PublicKey returns the currently connected account, if any.
	PublicKey() (domain.Identity, bool)

	// IsRecognized reports whether this is the expected wallet implementation.
	IsRecognized() bool
}

// Locator resolves the provider, which may be absent.
type Locator interface {
	Locate() (Provider, bool)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() (Provider, bool)

// Locate implements Locator.
func (f LocatorFunc) Locate() (Provider, bool) {
	return f()
}

// StaticLocator always resolves to p. A nil p resolves to nothing.
func StaticLocator(p Provider) Locator {
	return LocatorFunc(func() (Provider, bool) {
		if p == nil {
			return nil, false
		}
		return p, true
	})
}

// ChangeNotifier is implemented by locators whose provider can appear or be
// replaced at runtime. WalletSession repeats its start-up check (adopting an
// already connected account) after every change.
type ChangeNotifier interface {
	OnChange(fn func())
}

// resolveProvider returns the provider only when it is present and recognized.
func resolveProvider(l Locator) (Provider, bool) {
	if l == nil {
		return nil, false
	}
	p, ok := l.Locate()
	if !ok || p == nil || !p.IsRecognized() {
		return nil, false
	}
	return p, true
}
