// Package service provides domain services for ShadowHome.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
)

// message is anything delivered to the session goroutine.
type message any

type opRequest struct {
	op      Operation
	reply   chan opResult
	started time.Time
}

type opResult struct {
	snapshot domain.Snapshot
	err      error
}

type disconnectRequest struct {
	reply chan disconnectPlan
}

// disconnectPlan tells Disconnect which provider to release after the
// local reset. A nil provider means nothing is left to release.
type disconnectPlan struct {
	provider Provider
	epoch    uint64
	err      error
}

type disconnectDone struct {
	epoch   uint64
	err     error
	timeout bool
	started time.Time
	reply   chan error
}

type connectDone struct {
	opID     string
	epoch    uint64
	provider Provider
	identity domain.Identity
	err      error
	timeout  bool
}

type signDone struct {
	opID      string
	epoch     uint64
	identity  domain.Identity
	challenge domain.Challenge
	signed    *domain.SignedMessage
	err       error
	timeout   bool
}

// providerChanged reports that the locator may resolve to a new provider.
type providerChanged struct{}

type providerEvent struct {
	provider Provider
	name     string
	payload  any
}

// pendingOp is the single caller-initiated operation in flight.
type pendingOp struct {
	id       string
	op       Operation
	reply    chan opResult
	started  time.Time
	provider Provider
}

// sessionState is owned by the session goroutine.
type sessionState struct {
	state    domain.ConnectionState
	identity domain.Identity
	auth     *domain.Authentication
	lastErr  *domain.LastError

	// provider is the wallet the identity came from.
	provider Provider
	// subscribed holds providers whose events are already forwarded.
	subscribed map[Provider]struct{}

	// epoch advances on every event-driven or disconnect-driven change.
	// Completions carrying an older epoch are stale.
	epoch   uint64
	pending *pendingOp
	version uint64
}

// run is the session goroutine.
func (s *WalletSession) run(ready chan<- struct{}) {
	defer close(s.done)

	s.st.subscribed = make(map[Provider]struct{})
	s.restore()
	close(ready)

	for {
		select {
		case <-s.stop:
			s.shutdown()
			return
		case m := <-s.inbox:
			s.handle(m)
		}
	}
}

func (s *WalletSession) handle(m message) {
	switch m := m.(type) {
	case opRequest:
		s.handleRequest(m)
	case connectDone:
		s.handleConnectDone(m)
	case signDone:
		s.handleSignDone(m)
	case disconnectRequest:
		s.handleDisconnect(m)
	case disconnectDone:
		s.handleDisconnectDone(m)
	case providerEvent:
		s.handleEvent(m)
	case providerChanged:
		s.restore()
	default:
		s.logger.Error("unexpected session message", "type", fmt.Sprintf("%T", m))
	}
}

// restore adopts an account the provider already reports as connected.
// It reads the provider's flags only; no request is sent to the wallet.
func (s *WalletSession) restore() {
	p, ok := resolveProvider(s.locator)
	if !ok {
		return
	}
	s.subscribe(p)

	if s.st.state != domain.StateDisconnected || s.st.pending != nil {
		return
	}
	if !p.IsConnected() {
		return
	}
	key, ok := p.PublicKey()
	if !ok {
		return
	}
	id, err := domain.ParseIdentity(key.String())
	if err != nil {
		s.logger.Warn("provider reports invalid public key", "error", err)
		return
	}

	s.st.epoch++
	s.st.provider = p
	s.st.identity = id
	s.transition(domain.StateConnected, "restore", "")
	s.logger.Info("wallet already connected", "identity", id.String())
}

func (s *WalletSession) shutdown() {
	if p := s.st.pending; p != nil {
		s.st.pending = nil
		p.reply <- opResult{
			snapshot: s.Snapshot(),
			err:      domain.ErrServiceUnavailable.WithDetails("wallet session closed"),
		}
	}

drain:
	for {
		select {
		case m := <-s.inbox:
			s.reject(m)
		default:
			break drain
		}
	}

	for p := range s.st.subscribed {
		p.RemoveAllListeners()
	}
	s.st.subscribed = nil
	s.logger.Debug("wallet session stopped")
}

// reject answers a caller message that arrived after shutdown began.
func (s *WalletSession) reject(m message) {
	closed := domain.ErrServiceUnavailable.WithDetails("wallet session closed")
	switch m := m.(type) {
	case opRequest:
		m.reply <- opResult{snapshot: s.Snapshot(), err: closed}
	case disconnectRequest:
		m.reply <- disconnectPlan{err: closed}
	case disconnectDone:
		m.reply <- closed
	}
}

func (s *WalletSession) handleRequest(req opRequest) {
	if s.st.pending != nil {
		s.busy(req, domain.ErrOperationInProgress.WithDetails(
			fmt.Sprintf("%s is pending", s.st.pending.op)))
		return
	}

	switch req.op {
	case OpConnect:
		s.startConnect(req)
	case OpAuthenticate:
		if !s.st.state.HasIdentity() {
			s.fail(req, domain.ErrNotConnected)
			return
		}
		s.startAuthenticate(s.newPending(req))
	default:
		s.fail(req, domain.ErrInvalidArgument.WithDetails("unknown operation "+string(req.op)))
	}
}

func (s *WalletSession) newPending(req opRequest) *pendingOp {
	p := &pendingOp{
		id:      ulid.Make().String(),
		op:      req.op,
		reply:   req.reply,
		started: req.started,
	}
	s.st.pending = p
	return p
}

// fail rejects a request without starting it and records the error.
func (s *WalletSession) fail(req opRequest, err *domain.DomainError) {
	s.st.lastErr = domain.NewLastError(err)
	s.commit("", "")
	s.logger.Warn("wallet operation rejected", "op", req.op, "code", err.Code, "error", err.Error())
	s.observer.OnOperation(req.op, err, s.now().Sub(req.started))
	req.reply <- opResult{snapshot: s.Snapshot(), err: err}
}

// busy rejects a request that overlaps the pending operation. lastError
// belongs to the pending operation, so the rejection is only returned.
func (s *WalletSession) busy(req opRequest, err *domain.DomainError) {
	s.logger.Warn("wallet operation rejected", "op", req.op, "code", err.Code, "pending", s.st.pending.op)
	s.observer.OnOperation(req.op, err, s.now().Sub(req.started))
	req.reply <- opResult{snapshot: s.Snapshot(), err: err}
}

func (s *WalletSession) startConnect(req opRequest) {
	p, ok := resolveProvider(s.locator)
	if !ok {
		s.fail(req, domain.ErrProviderUnavailable)
		return
	}
	s.subscribe(p)

	switch s.st.state {
	case domain.StateAuthenticated:
		s.observer.OnOperation(req.op, nil, s.now().Sub(req.started))
		req.reply <- opResult{snapshot: s.Snapshot()}
		return
	case domain.StateConnected:
		s.startAuthenticate(s.newPending(req))
		return
	}

	pending := s.newPending(req)
	pending.provider = p
	epoch := s.st.epoch
	s.st.lastErr = nil
	s.transition(domain.StateConnecting, string(OpConnect), pending.id)
	s.logger.Debug("connecting wallet", "op_id", pending.id)

	go func() {
		id, timeout, err := invoke(s, func(ctx context.Context) (domain.Identity, error) {
			return p.Connect(ctx, ConnectOptions{})
		})
		s.post(connectDone{
			opID:     pending.id,
			epoch:    epoch,
			provider: p,
			identity: id,
			err:      err,
			timeout:  timeout,
		})
	}()
}

func (s *WalletSession) startAuthenticate(pending *pendingOp) {
	p := s.st.provider
	id := s.st.identity
	epoch := s.st.epoch
	challenge := domain.NewChallenge(s.cfg.ChallengeGreeting, s.now())

	s.st.lastErr = nil
	s.transition(domain.StateAuthenticating, string(OpAuthenticate), pending.id)
	s.logger.Debug("requesting signature", "op_id", pending.id, "identity", id.String())

	go func() {
		signed, timeout, err := invoke(s, func(ctx context.Context) (*domain.SignedMessage, error) {
			return p.SignMessage(ctx, challenge.Bytes(), domain.ChallengeEncoding)
		})
		s.post(signDone{
			opID:      pending.id,
			epoch:     epoch,
			identity:  id,
			challenge: challenge,
			signed:    signed,
			err:       err,
			timeout:   timeout,
		})
	}()
}

// takePending returns the pending operation that opID belongs to, or nil
// when the caller was already answered (Disconnect or Close).
func (s *WalletSession) takePending(opID string) *pendingOp {
	p := s.st.pending
	if p == nil || p.id != opID {
		s.logger.Debug("dropping orphaned completion", "op_id", opID)
		return nil
	}
	s.st.pending = nil
	return p
}

// finish answers the pending caller.
func (s *WalletSession) finish(p *pendingOp, err error) {
	elapsed := s.now().Sub(p.started)
	s.observer.OnOperation(p.op, err, elapsed)
	if err != nil {
		s.logger.Warn("wallet operation failed", "op", p.op, "op_id", p.id, "code", domain.GetErrorCode(err), "error", err.Error())
	} else {
		s.logger.Info("wallet operation completed", "op", p.op, "op_id", p.id, "identity", s.st.identity.String(), "elapsed", elapsed)
	}
	p.reply <- opResult{snapshot: s.Snapshot(), err: err}
}

// stale discards a completion that raced with an event.
func (s *WalletSession) stale(p *pendingOp) {
	s.commit("", "")
	s.finish(p, domain.ErrStaleOperation.WithDetails("wallet changed while "+string(p.op)+" was in flight"))
}

func (s *WalletSession) handleConnectDone(m connectDone) {
	p := s.takePending(m.opID)
	if p == nil {
		return
	}
	if m.epoch != s.st.epoch {
		s.stale(p)
		return
	}

	if m.err != nil {
		derr := s.callError(domain.ErrConnectionFailed, m.err, m.timeout)
		s.st.identity = ""
		s.st.auth = nil
		s.st.provider = nil
		s.st.lastErr = domain.NewLastError(derr)
		s.transition(domain.StateDisconnected, string(OpConnect), m.opID)
		s.finish(p, derr)
		return
	}

	id, err := domain.ParseIdentity(m.identity.String())
	if err != nil {
		derr := domain.ErrConnectionFailed.WithCause(err)
		s.st.provider = nil
		s.st.lastErr = domain.NewLastError(derr)
		s.transition(domain.StateDisconnected, string(OpConnect), m.opID)
		s.finish(p, derr)
		return
	}

	// Connecting implies an authentication attempt under the same caller,
	// so the operation stays pending across the Connected step.
	s.st.pending = p
	s.st.provider = m.provider
	s.st.identity = id
	s.transition(domain.StateConnected, string(OpConnect), m.opID)
	s.startAuthenticate(p)
}

func (s *WalletSession) handleSignDone(m signDone) {
	p := s.takePending(m.opID)
	if p == nil {
		return
	}
	if m.epoch != s.st.epoch || m.identity != s.st.identity {
		s.stale(p)
		return
	}

	var failure *domain.DomainError
	switch {
	case m.err != nil:
		failure = s.callError(domain.ErrAuthenticationFailed, m.err, m.timeout)
	case m.signed == nil || len(m.signed.Signature) == 0:
		failure = domain.ErrAuthenticationFailed.WithDetails("provider returned no signature")
	case !m.signed.Identity.IsZero() && m.signed.Identity != m.identity:
		failure = domain.ErrAuthenticationFailed.WithDetails("message signed by a different account")
	}

	if failure != nil {
		s.st.auth = nil
		s.st.lastErr = domain.NewLastError(failure)
		s.transition(domain.StateConnected, string(OpAuthenticate), m.opID)
		s.finish(p, failure)
		return
	}

	s.st.auth = &domain.Authentication{
		Challenge: m.challenge,
		Signature: append([]byte(nil), m.signed.Signature...),
		SignedAt:  s.now(),
	}
	s.st.lastErr = nil
	s.transition(domain.StateAuthenticated, string(OpAuthenticate), m.opID)
	s.finish(p, nil)
}

func (s *WalletSession) handleDisconnect(m disconnectRequest) {
	superseded := s.st.pending
	prov := s.st.provider
	if prov == nil && superseded != nil {
		// The wallet may still approve the superseded connect.
		prov = superseded.provider
	}

	s.st.pending = nil
	s.st.epoch++
	s.st.provider = nil
	s.st.identity = ""
	s.st.auth = nil
	s.st.lastErr = nil
	s.transition(domain.StateDisconnected, string(OpDisconnect), "")

	if superseded != nil {
		s.finish(superseded, domain.ErrStaleOperation.WithDetails(
			"wallet disconnected while "+string(superseded.op)+" was in flight"))
	}

	// Without a bound wallet the provider is left alone.
	m.reply <- disconnectPlan{provider: prov, epoch: s.st.epoch}
}

func (s *WalletSession) handleDisconnectDone(m disconnectDone) {
	elapsed := s.now().Sub(m.started)
	if m.err == nil {
		s.observer.OnOperation(OpDisconnect, nil, elapsed)
		m.reply <- nil
		return
	}

	derr := s.callError(domain.ErrDisconnectFailed, m.err, m.timeout)
	// A later event or operation already owns lastError.
	if m.epoch == s.st.epoch && s.st.pending == nil {
		s.st.lastErr = domain.NewLastError(derr)
		s.commit("", "")
	}
	s.logger.Warn("provider disconnect failed", "code", derr.Code, "error", derr.Error())
	s.observer.OnOperation(OpDisconnect, derr, elapsed)
	m.reply <- derr
}

func (s *WalletSession) handleEvent(m providerEvent) {
	ev, err := domain.DecodeEvent(m.name, m.payload)
	if err != nil {
		s.logger.Warn("dropping malformed provider event", "event", m.name, "error", err)
		return
	}

	if !s.accepts(m.provider) {
		s.logger.Debug("ignoring event from inactive provider", "event", m.name)
		return
	}
	s.observer.OnProviderEvent(ev)

	cause := "event:" + ev.Kind.String()
	switch ev.Kind {
	case domain.EventConnected:
		if s.st.state != domain.StateDisconnected {
			s.logger.Debug("ignoring connect event", "state", s.st.state)
			return
		}
		s.st.epoch++
		s.st.provider = m.provider
		s.st.identity = ev.Identity
		s.transition(domain.StateConnected, cause, "")

	case domain.EventDisconnected:
		if s.st.state == domain.StateDisconnected && s.st.pending == nil {
			return
		}
		s.st.epoch++
		s.st.provider = nil
		s.st.identity = ""
		s.st.auth = nil
		s.transition(domain.StateDisconnected, cause, "")

	case domain.EventAccountChanged:
		if s.st.state == domain.StateDisconnected {
			s.logger.Debug("ignoring account change while disconnected")
			return
		}
		s.st.epoch++
		s.st.provider = m.provider
		s.st.identity = ev.Identity
		s.st.auth = nil
		s.transition(domain.StateConnected, cause, "")
	}
}

// accepts reports whether events from p drive the session: the provider the
// identity came from, or the located provider while nothing is bound.
func (s *WalletSession) accepts(p Provider) bool {
	if s.st.provider != nil {
		return p == s.st.provider
	}
	current, ok := resolveProvider(s.locator)
	return ok && current == p
}

// subscribe forwards the provider's events to the session inbox once.
func (s *WalletSession) subscribe(p Provider) {
	if _, ok := s.st.subscribed[p]; ok {
		return
	}
	s.st.subscribed[p] = struct{}{}

	for _, name := range []string{domain.EventNameConnect, domain.EventNameDisconnect, domain.EventNameAccountChanged} {
		name := name
		p.On(name, func(payload any) {
			s.post(providerEvent{provider: p, name: name, payload: payload})
		})
	}
}

type callResult[T any] struct {
	value T
	err   error
}

// invoke runs one provider call under the call timeout. A provider that
// ignores its context is abandoned when the timeout fires.
func invoke[T any](s *WalletSession, fn func(ctx context.Context) (T, error)) (value T, timeout bool, err error) {
	ctx, cancel := s.callContext()
	defer cancel()

	result := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- callResult[T]{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		result <- callResult[T]{value: v, err: err}
	}()

	select {
	case r := <-result:
		return r.value, r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded), r.err
	case <-ctx.Done():
		return value, errors.Is(ctx.Err(), context.DeadlineExceeded), ctx.Err()
	}
}

// callError maps a provider failure to the operation's error kind.
func (s *WalletSession) callError(base *domain.DomainError, err error, timeout bool) *domain.DomainError {
	if timeout {
		return base.WithCause(err).WithDetails(fmt.Sprintf("provider did not respond within %s", s.cfg.CallTimeout))
	}
	return base.WithCause(err)
}

// transition moves the session to state and publishes the change.
func (s *WalletSession) transition(to domain.ConnectionState, cause, opID string) {
	if from := s.st.state; !domain.CanTransition(from, to) {
		s.logger.Error("unexpected wallet transition", "from", from, "to", to, "cause", cause)
	}
	s.st.state = to
	s.commit(cause, opID)
}

// commit publishes the session state as a new snapshot.
func (s *WalletSession) commit(cause, opID string) {
	prev := s.Snapshot()

	s.st.version++
	snap := domain.Snapshot{
		State:           s.st.state,
		Identity:        s.st.identity,
		IsConnected:     s.st.state.HasIdentity(),
		IsAuthenticated: s.st.state == domain.StateAuthenticated,
		Loading:         s.st.pending != nil,
		LastError:       s.st.lastErr,
		Auth:            s.st.auth,
		Version:         s.st.version,
		UpdatedAt:       s.now(),
	}
	if err := snap.Validate(); err != nil {
		s.logger.Error("inconsistent wallet snapshot", "error", err, "cause", cause)
	}
	s.current.Store(&snap)

	if prev.State != snap.State || prev.Identity != snap.Identity {
		t := Transition{
			OpID:     opID,
			Cause:    cause,
			From:     prev.State,
			To:       snap.State,
			Identity: snap.Identity,
			Err:      snap.LastError,
			At:       snap.UpdatedAt,
		}
		s.logger.Info("wallet state changed", "from", t.From, "to", t.To, "cause", cause, "op_id", opID, "identity", snap.Identity.String())
		s.observer.OnTransition(t)
	}

	s.feed.publish(snap)
}
