// Package service provides domain services for ShadowHome.
//
// WalletSession handles the wallet connect / authenticate / disconnect
// handshake against an injected provider.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

// DefaultCallTimeout bounds a single provider call. Wallet prompts wait for
// a human, so the bound is generous.
const DefaultCallTimeout = 2 * time.Minute

// inboxSize is the buffer of the session inbox.
const inboxSize = 64

// WalletConfig holds configuration for WalletSession.
type WalletConfig struct {
	// CallTimeout bounds each provider call (connect, sign, disconnect).
	// Zero disables the bound; a hung provider then keeps the operation
	// pending until Disconnect or Close.
	CallTimeout time.Duration

	// ChallengeGreeting replaces domain.DefaultChallengeGreeting when set.
	ChallengeGreeting string
}

// DefaultWalletConfig returns default configuration.
func DefaultWalletConfig() *WalletConfig {
	return &WalletConfig{
		CallTimeout: DefaultCallTimeout,
	}
}

// WalletOption configures a WalletSession.
type WalletOption func(*WalletSession)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) WalletOption {
	return func(s *WalletSession) {
		s.logger = l
	}
}

// WithObserver registers an observer for transitions, operations and events.
func WithObserver(o Observer) WalletOption {
	return func(s *WalletSession) {
		s.observer = o
	}
}

// WithClock overrides the time source (challenge timestamps, journal times).
func WithClock(now func() time.Time) WalletOption {
	return func(s *WalletSession) {
		s.now = now
	}
}

// WalletSession serializes all interaction with the wallet provider and
// exposes a consistent view of connection and authentication state.
//
// All state lives in the goroutine started by NewWalletSession. Operations
// and provider events are messages to that goroutine; provider calls run in
// their own goroutines and report back through the same inbox.
type WalletSession struct {
	locator  Locator
	cfg      WalletConfig
	logger   logger.Logger
	observer Observer
	now      func() time.Time

	inbox chan message
	stop  chan struct{}
	done  chan struct{}

	// ctx bounds every provider call; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	current   atomic.Pointer[domain.Snapshot]
	feed      *snapshotFeed
	closeOnce sync.Once

	// Owned by the session goroutine.
	st sessionState
}

// NewWalletSession creates a session and starts its goroutine. If a
// recognized provider is already connected, the session adopts its account
// (silent reconnect). Call Close to release the provider listeners.
func NewWalletSession(locator Locator, cfg *WalletConfig, opts ...WalletOption) *WalletSession {
	if cfg == nil {
		cfg = DefaultWalletConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &WalletSession{
		locator:  locator,
		cfg:      *cfg,
		logger:   logger.Default(),
		observer: nopObserver{},
		now:      time.Now,
		inbox:    make(chan message, inboxSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		feed:     newSnapshotFeed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "wallet_session")

	initial := domain.Snapshot{State: domain.StateDisconnected, UpdatedAt: s.now()}
	s.current.Store(&initial)

	ready := make(chan struct{})
	go s.run(ready)
	<-ready

	if n, ok := locator.(ChangeNotifier); ok {
		n.OnChange(func() { s.post(providerChanged{}) })
	}

	return s
}

// Snapshot returns the current read-only session view.
func (s *WalletSession) Snapshot() domain.Snapshot {
	return *s.current.Load()
}

// Subscribe returns a channel that receives the current snapshot and then
// every change. Slow readers only see the latest snapshot. Call the returned
// function to unsubscribe.
func (s *WalletSession) Subscribe() (<-chan domain.Snapshot, func()) {
	return s.feed.subscribe(s.Snapshot())
}

// Connect connects the wallet and then authenticates it.
//
// If the connection succeeds but the signature is refused, the session
// stays Connected and the AuthenticationFailed error is returned: callers
// distinguish it with domain.KindOf. Failures before an identity is known
// leave the session Disconnected with ConnectionFailed.
//
// ctx only bounds waiting for the result. The operation itself keeps
// running and its outcome is still applied to the session.
func (s *WalletSession) Connect(ctx context.Context) (domain.Snapshot, error) {
	return s.call(ctx, OpConnect)
}

// Authenticate asks the wallet to sign a fresh challenge.
// A failure keeps the wallet connected and only clears authentication.
func (s *WalletSession) Authenticate(ctx context.Context) (domain.Snapshot, error) {
	return s.call(ctx, OpAuthenticate)
}

// Disconnect forgets the wallet session. Local state is reset before the
// provider is asked to disconnect, and stays reset if that call fails; the
// failure is recorded and returned as DisconnectFailed. Disconnect is
// allowed while another operation is pending and supersedes it.
func (s *WalletSession) Disconnect(ctx context.Context) (domain.Snapshot, error) {
	started := s.now()

	reply := make(chan disconnectPlan, 1)
	if err := s.send(ctx, disconnectRequest{reply: reply}); err != nil {
		return s.Snapshot(), err
	}
	var plan disconnectPlan
	if err := await(s, ctx, reply, &plan); err != nil {
		return s.Snapshot(), err
	}
	if plan.err != nil {
		return s.Snapshot(), plan.err
	}

	// The provider call and its outcome run on their own, so a failure is
	// recorded even if the caller stops waiting.
	done := make(chan error, 1)
	go func() {
		var (
			perr    error
			timeout bool
		)
		if plan.provider != nil {
			_, timeout, perr = invoke(s, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, plan.provider.Disconnect(ctx)
			})
		}
		s.post(disconnectDone{
			epoch:   plan.epoch,
			err:     perr,
			timeout: timeout,
			started: started,
			reply:   done,
		})
	}()

	var err error
	if werr := await(s, ctx, done, &err); werr != nil {
		return s.Snapshot(), werr
	}
	return s.Snapshot(), err
}

// Close stops the session goroutine, cancels in-flight provider calls and
// removes the provider listeners. Pending callers receive
// ErrServiceUnavailable. Close is idempotent.
func (s *WalletSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.cancel()
		s.feed.close()
	})
	return nil
}

// call runs a connect or authenticate operation and waits for its outcome.
func (s *WalletSession) call(ctx context.Context, op Operation) (domain.Snapshot, error) {
	reply := make(chan opResult, 1)
	if err := s.send(ctx, opRequest{op: op, reply: reply, started: s.now()}); err != nil {
		return s.Snapshot(), err
	}

	var res opResult
	if err := await(s, ctx, reply, &res); err != nil {
		return s.Snapshot(), err
	}
	return res.snapshot, res.err
}

// await receives one reply from the session goroutine into out.
func await[T any](s *WalletSession, ctx context.Context, reply <-chan T, out *T) error {
	select {
	case *out = <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case *out = <-reply:
			return nil
		default:
			return domain.ErrServiceUnavailable.WithDetails("wallet session closed")
		}
	}
}

// send delivers a caller message to the session goroutine.
func (s *WalletSession) send(ctx context.Context, m message) error {
	select {
	case <-s.stop:
		return domain.ErrServiceUnavailable.WithDetails("wallet session closed")
	default:
	}

	select {
	case s.inbox <- m:
		return nil
	case <-s.stop:
		return domain.ErrServiceUnavailable.WithDetails("wallet session closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers a completion or event message. It gives up once the session
// goroutine has exited.
func (s *WalletSession) post(m message) {
	select {
	case s.inbox <- m:
	case <-s.done:
	}
}

// callContext returns the context for one provider call.
func (s *WalletSession) callContext() (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout > 0 {
		return context.WithTimeout(s.ctx, s.cfg.CallTimeout)
	}
	return context.WithCancel(s.ctx)
}

// snapshotFeed fans snapshots out to subscribers.
type snapshotFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.Snapshot
	closed bool
}

func newSnapshotFeed() *snapshotFeed {
	return &snapshotFeed{subs: make(map[int]chan domain.Snapshot)}
}

func (f *snapshotFeed) subscribe(initial domain.Snapshot) (<-chan domain.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan domain.Snapshot, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- initial

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// publish replaces any unread snapshot with snap.
func (f *snapshotFeed) publish(snap domain.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (f *snapshotFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
}
