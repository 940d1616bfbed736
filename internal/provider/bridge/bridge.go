// Package bridge relays wallet calls to a browser page over a websocket.
package bridge

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

// DefaultRequestTimeout bounds one relayed call. It covers a user prompt.
const DefaultRequestTimeout = 2 * time.Minute

// helloTimeout bounds how long a page may stay attached without a hello.
const helloTimeout = 10 * time.Second

// Config configures a Bridge.
type Config struct {
	// OriginAllowlist lists origins allowed to attach. Empty allows the
	// server's own host and loopback origins.
	OriginAllowlist []string

	// RequestTimeout bounds each relayed call. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Bridge accepts browser pages and exposes the active one as a wallet.
// It implements service.Locator and service.ChangeNotifier.
type Bridge struct {
	cfg      Config
	origins  map[string]bool
	hosts    map[string]bool
	upgrader websocket.Upgrader
	logger   logger.Logger

	mu       sync.Mutex
	active   *Page
	onChange []func()
	closed   bool
}

var (
	_ service.Locator        = (*Bridge)(nil)
	_ service.ChangeNotifier = (*Bridge)(nil)
)

// New creates a Bridge.
func New(cfg Config, l logger.Logger) *Bridge {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if l == nil {
		l = logger.Default()
	}

	b := &Bridge{
		cfg:     cfg,
		origins: make(map[string]bool),
		hosts:   make(map[string]bool),
		logger:  l.With("component", "wallet_bridge"),
	}
	for _, origin := range cfg.OriginAllowlist {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		b.origins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			b.hosts[parsed.Host] = true
		}
	}
	b.upgrader = websocket.Upgrader{CheckOrigin: b.checkOrigin}
	return b
}

// Locate implements service.Locator. It reports false while no recognized
// page is attached.
func (b *Bridge) Locate() (service.Provider, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return nil, false
	}
	return b.active, true
}

// OnChange implements service.ChangeNotifier.
func (b *Bridge) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

// Attached reports whether a page is active.
func (b *Bridge) Attached() bool {
	_, ok := b.Locate()
	return ok
}

// ServeHTTP upgrades the request and serves one page until it goes away.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		http.Error(w, "bridge closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("bridge upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := newPage(conn, b.cfg.RequestTimeout, b.logger.With("remote", r.RemoteAddr))
	b.logger.Info("wallet page connected", "remote", r.RemoteAddr)

	hello := time.AfterFunc(helloTimeout, func() {
		if !p.IsRecognized() {
			p.close("hello expected")
		}
	})

	go p.pingLoop()
	go func() {
		defer hello.Stop()
		p.readLoop(b.attach)
		b.release(p)
		b.logger.Info("wallet page disconnected", "remote", r.RemoteAddr)
	}()
}

// attach makes p the active page, replacing any previous one.
func (b *Bridge) attach(p *Page) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		p.close("bridge closed")
		return
	}
	old := b.active
	b.active = p
	fns := append([]func(){}, b.onChange...)
	b.mu.Unlock()

	if old != nil {
		// The old page reports its disconnect before listeners hear
		// about the new one.
		b.logger.Info("wallet page replaced")
		old.close("replaced by a newer page")
		<-old.Done()
	}
	for _, fn := range fns {
		fn()
	}
}

// release forgets p if it is still the active page.
func (b *Bridge) release(p *Page) {
	b.mu.Lock()
	if b.active != p {
		b.mu.Unlock()
		return
	}
	b.active = nil
	fns := append([]func(){}, b.onChange...)
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close detaches the active page and refuses new ones.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	p := b.active
	b.active = nil
	b.mu.Unlock()

	if p != nil {
		p.close("server shutting down")
		<-p.Done()
	}
	return nil
}

func (b *Bridge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	if len(b.origins) > 0 {
		return b.origins[origin] || b.hosts[parsed.Host]
	}

	host := parsed.Hostname()
	return parsed.Host == r.Host || host == "localhost" || host == "127.0.0.1" || host == "::1"
}
