// Package software implements an in-process ed25519 wallet.
package software

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
	"github.com/yndnr/shadowhome-go/pkg/sigverify"
)

var (
	// ErrNotTrusted is returned by an OnlyIfTrusted connect before the
	// application was ever approved.
	ErrNotTrusted = errors.New("application is not trusted")

	// ErrNotConnected is returned by SignMessage without a connection.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrRateLimited is returned when sign prompts arrive too quickly.
	ErrRateLimited = errors.New("too many signature requests")

	// ErrNoAccounts is returned when a wallet is built without keys.
	ErrNoAccounts = errors.New("wallet has no accounts")
)

// Default sign prompt limit.
const (
	DefaultSignRate  = rate.Limit(2)
	DefaultSignBurst = 5
)

type account struct {
	key ed25519.PrivateKey
	id  domain.Identity
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithApprover sets the prompt handler. The default approves everything.
func WithApprover(a Approver) Option {
	return func(w *Wallet) {
		w.approver = a
	}
}

// WithSignRate limits sign prompts to r per second with the given burst.
func WithSignRate(r rate.Limit, burst int) Option {
	return func(w *Wallet) {
		w.limiter = rate.NewLimiter(r, burst)
	}
}

// WithLogger sets the wallet logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Wallet) {
		w.logger = l
	}
}

// Wallet is an in-process wallet holding one or more ed25519 accounts.
// It is safe for concurrent use. Event callbacks run on the goroutine that
// caused the event and must not call back into the Wallet.
type Wallet struct {
	mu        sync.Mutex
	accounts  []account
	active    int
	connected bool
	trusted   bool
	listeners map[string][]func(any)

	approver Approver
	limiter  *rate.Limiter
	logger   logger.Logger
}

var _ service.Provider = (*Wallet)(nil)

// New creates a wallet from 32-byte ed25519 seeds.
func New(seeds [][]byte, opts ...Option) (*Wallet, error) {
	if len(seeds) == 0 {
		return nil, ErrNoAccounts
	}

	w := &Wallet{
		listeners: make(map[string][]func(any)),
		approver:  AutoApprove(),
		limiter:   rate.NewLimiter(DefaultSignRate, DefaultSignBurst),
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "software_wallet")

	for i, seed := range seeds {
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("seed %d: must be %d bytes, got %d", i, ed25519.SeedSize, len(seed))
		}
		key := ed25519.NewKeyFromSeed(seed)
		w.accounts = append(w.accounts, account{
			key: key,
			id:  domain.Identity(sigverify.EncodePublicKey(key.Public().(ed25519.PublicKey))),
		})
	}
	return w, nil
}

// FromSeed creates a single-account wallet.
func FromSeed(seed []byte, opts ...Option) (*Wallet, error) {
	return New([][]byte{seed}, opts...)
}

// Generate creates a wallet with n fresh random accounts.
func Generate(n int, opts ...Option) (*Wallet, error) {
	if n < 1 {
		return nil, ErrNoAccounts
	}
	seeds := make([][]byte, n)
	for i := range seeds {
		seeds[i] = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seeds[i]); err != nil {
			return nil, err
		}
	}
	return New(seeds, opts...)
}

// Connect implements service.Provider.
func (w *Wallet) Connect(ctx context.Context, opts service.ConnectOptions) (domain.Identity, error) {
	w.mu.Lock()
	id := w.accounts[w.active].id
	trusted := w.trusted
	w.mu.Unlock()

	if opts.OnlyIfTrusted {
		if !trusted {
			return "", ErrNotTrusted
		}
	} else if err := w.approver.Approve(ctx, Request{Kind: RequestConnect, Identity: id}); err != nil {
		w.logger.Info("connect declined", "error", err)
		return "", err
	}

	w.mu.Lock()
	// The user may have switched accounts while the prompt was open.
	id = w.accounts[w.active].id
	w.trusted = true
	w.connected = true
	w.mu.Unlock()

	w.emit(domain.EventNameConnect, id)
	return id, nil
}

// Disconnect implements service.Provider. The application stays trusted.
func (w *Wallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	was := w.connected
	w.connected = false
	w.mu.Unlock()

	if was {
		w.emit(domain.EventNameDisconnect, nil)
	}
	return nil
}

// Revoke disconnects and forgets that the application was trusted.
func (w *Wallet) Revoke() {
	w.mu.Lock()
	w.trusted = false
	w.mu.Unlock()
	_ = w.Disconnect(context.Background())
}

// SignMessage implements service.Provider.
func (w *Wallet) SignMessage(ctx context.Context, message []byte, encoding string) (*domain.SignedMessage, error) {
	w.mu.Lock()
	connected := w.connected
	acct := w.accounts[w.active]
	w.mu.Unlock()

	if !connected {
		return nil, ErrNotConnected
	}
	if !w.limiter.Allow() {
		return nil, ErrRateLimited
	}

	req := Request{Kind: RequestSign, Identity: acct.id, Message: message, Encoding: encoding}
	if err := w.approver.Approve(ctx, req); err != nil {
		w.logger.Info("signature declined", "identity", acct.id.String(), "error", err)
		return nil, err
	}

	return &domain.SignedMessage{
		Signature: ed25519.Sign(acct.key, message),
		Identity:  acct.id,
	}, nil
}

// On implements service.Provider.
func (w *Wallet) On(event string, cb func(payload any)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners[event] = append(w.listeners[event], cb)
}

// RemoveAllListeners implements service.Provider.
func (w *Wallet) RemoveAllListeners() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = make(map[string][]func(any))
}

// IsConnected implements service.Provider.
func (w *Wallet) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// PublicKey implements service.Provider. It reports the active account
// only while connected.
func (w *Wallet) PublicKey() (domain.Identity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return "", false
	}
	return w.accounts[w.active].id, true
}

// IsRecognized implements service.Provider.
func (w *Wallet) IsRecognized() bool {
	return true
}

// Accounts lists the wallet's identities in order.
func (w *Wallet) Accounts() []domain.Identity {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]domain.Identity, len(w.accounts))
	for i, a := range w.accounts {
		ids[i] = a.id
	}
	return ids
}

// Active returns the index of the selected account.
func (w *Wallet) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// SwitchAccount selects account i. A connected wallet emits accountChanged.
func (w *Wallet) SwitchAccount(i int) error {
	w.mu.Lock()
	if i < 0 || i >= len(w.accounts) {
		w.mu.Unlock()
		return fmt.Errorf("account %d out of range [0,%d)", i, len(w.accounts))
	}
	changed := w.active != i
	w.active = i
	id := w.accounts[i].id
	connected := w.connected
	w.mu.Unlock()

	if changed && connected {
		w.logger.Info("account changed", "identity", id.String())
		w.emit(domain.EventNameAccountChanged, id)
	}
	return nil
}

// seeds returns copies of the account seeds for the keystore.
func (w *Wallet) seeds() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]byte, len(w.accounts))
	for i, a := range w.accounts {
		out[i] = append([]byte(nil), a.key.Seed()...)
	}
	return out
}

func (w *Wallet) emit(event string, payload any) {
	w.mu.Lock()
	cbs := slices.Clone(w.listeners[event])
	w.mu.Unlock()

	for _, cb := range cbs {
		cb(payload)
	}
}
