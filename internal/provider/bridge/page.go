// Package bridge relays wallet calls to a browser page over a websocket.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

var (
	// ErrDetached is returned for calls on a page that went away.
	ErrDetached = errors.New("wallet page detached")

	// ErrRequestTimeout is returned when the page does not answer in time.
	ErrRequestTimeout = errors.New("wallet page did not answer")
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

type response struct {
	result json.RawMessage
	err    error
}

// Page is one attached browser page. It implements service.Provider.
type Page struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	timeout time.Duration
	logger  logger.Logger

	mu         sync.Mutex
	pending    map[string]chan response
	listeners  map[string][]func(any)
	recognized bool
	connected  bool
	publicKey  domain.Identity

	done      chan struct{}
	closeOnce sync.Once
}

var _ service.Provider = (*Page)(nil)

func newPage(conn *websocket.Conn, timeout time.Duration, l logger.Logger) *Page {
	return &Page{
		conn:      conn,
		timeout:   timeout,
		logger:    l,
		pending:   make(map[string]chan response),
		listeners: make(map[string][]func(any)),
		done:      make(chan struct{}),
	}
}

// Connect implements service.Provider.
func (p *Page) Connect(ctx context.Context, opts service.ConnectOptions) (domain.Identity, error) {
	raw, err := p.request(ctx, MethodConnect, connectParams{OnlyIfTrusted: opts.OnlyIfTrusted})
	if err != nil {
		return "", err
	}
	var res connectResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("decode connect result: %w", err)
	}
	id, err := domain.ParseIdentity(res.PublicKey)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.connected = true
	p.publicKey = id
	p.mu.Unlock()
	return id, nil
}

// Disconnect implements service.Provider.
func (p *Page) Disconnect(ctx context.Context) error {
	if _, err := p.request(ctx, MethodDisconnect, nil); err != nil {
		return err
	}
	p.mu.Lock()
	p.connected = false
	p.publicKey = ""
	p.mu.Unlock()
	return nil
}

// SignMessage implements service.Provider.
func (p *Page) SignMessage(ctx context.Context, message []byte, encoding string) (*domain.SignedMessage, error) {
	raw, err := p.request(ctx, MethodSignMessage, signParams{Message: message, Display: encoding})
	if err != nil {
		return nil, err
	}
	var res signResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode sign result: %w", err)
	}

	signed := &domain.SignedMessage{Signature: res.Signature}
	if res.PublicKey != "" {
		id, err := domain.ParseIdentity(res.PublicKey)
		if err != nil {
			return nil, err
		}
		signed.Identity = id
	}
	return signed, nil
}

// On implements service.Provider.
func (p *Page) On(event string, cb func(payload any)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners[event] = append(p.listeners[event], cb)
}

// RemoveAllListeners implements service.Provider.
func (p *Page) RemoveAllListeners() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = make(map[string][]func(any))
}

// IsConnected implements service.Provider.
func (p *Page) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// PublicKey implements service.Provider.
func (p *Page) PublicKey() (domain.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected || p.publicKey == "" {
		return "", false
	}
	return p.publicKey, true
}

// IsRecognized implements service.Provider. It reflects the page's hello.
func (p *Page) IsRecognized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recognized
}

// Done is closed when the page detaches.
func (p *Page) Done() <-chan struct{} {
	return p.done
}

// request sends one call and waits for its response.
func (p *Page) request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := ulid.Make().String()
	ch := make(chan response, 1)

	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		return nil, ErrDetached
	default:
	}
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.write(Frame{ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	var expire <-chan time.Time
	if p.timeout > 0 {
		t := time.NewTimer(p.timeout)
		defer t.Stop()
		expire = t.C
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expire:
		return nil, fmt.Errorf("%w within %s (%s)", ErrRequestTimeout, p.timeout, method)
	case <-p.done:
		return nil, ErrDetached
	}
}

func (p *Page) write(f Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(f)
}

// readLoop dispatches frames until the connection fails.
func (p *Page) readLoop(onHello func(*Page)) {
	defer p.detach()

	p.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var f Frame
		if err := p.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug("bridge read failed", "error", err)
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongTimeout))

		switch {
		case f.ID != "":
			p.resolve(f)
		case f.Event == EventHello:
			if p.hello(f.Payload) {
				onHello(p)
			}
		case f.Event != "":
			p.event(f.Event, f.Payload)
		default:
			p.logger.Warn("dropping bridge frame without id or event")
		}
	}
}

func (p *Page) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.writeMu.Lock()
			err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			p.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Page) resolve(f Frame) {
	p.mu.Lock()
	ch, ok := p.pending[f.ID]
	p.mu.Unlock()
	if !ok {
		p.logger.Debug("dropping late bridge response", "id", f.ID)
		return
	}

	res := response{result: f.Result}
	if f.Error != nil {
		res.err = f.Error
	}
	select {
	case ch <- res:
	default:
		p.logger.Warn("duplicate bridge response", "id", f.ID)
	}
}

// hello records the page's wallet flags. It reports false for a repeated hello.
func (p *Page) hello(payload json.RawMessage) bool {
	var h Hello
	if err := json.Unmarshal(payload, &h); err != nil {
		p.logger.Warn("invalid bridge hello", "error", err)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	first := !p.recognized
	p.recognized = h.IsPhantom
	p.connected = false
	p.publicKey = ""
	if h.IsConnected {
		if id, err := domain.ParseIdentity(h.PublicKey); err == nil {
			p.connected = true
			p.publicKey = id
		}
	}
	return first && h.IsPhantom
}

// event updates the cached flags and forwards the event to listeners.
func (p *Page) event(name string, payload json.RawMessage) {
	if ev, err := domain.DecodeEvent(name, payload); err == nil {
		p.mu.Lock()
		switch ev.Kind {
		case domain.EventConnected, domain.EventAccountChanged:
			p.connected = true
			p.publicKey = ev.Identity
		case domain.EventDisconnected:
			p.connected = false
			p.publicKey = ""
		}
		p.mu.Unlock()
	}
	p.emit(name, payload)
}

func (p *Page) emit(name string, payload any) {
	p.mu.Lock()
	cbs := slices.Clone(p.listeners[name])
	p.mu.Unlock()
	for _, cb := range cbs {
		cb(payload)
	}
}

// close ends the connection; readLoop then detaches the page.
func (p *Page) close(reason string) {
	p.writeMu.Lock()
	p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second))
	p.writeMu.Unlock()
	p.conn.Close()
}

// detach reports a disconnect if needed, then fails outstanding calls.
func (p *Page) detach() {
	p.closeOnce.Do(func() {
		p.conn.Close()

		p.mu.Lock()
		was := p.connected
		p.connected = false
		p.publicKey = ""
		p.mu.Unlock()

		if was {
			p.emit(domain.EventNameDisconnect, nil)
		}
		close(p.done)
	})
}
