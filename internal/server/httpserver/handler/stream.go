package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
	"github.com/yndnr/shadowhome-go/internal/telemetry/metric"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = 30 * time.Second
)

// StreamFrame is one message on the snapshot stream.
type StreamFrame struct {
	Type string         `json:"type"`
	Data WalletResponse `json:"data"`
}

// streamer serves GET /v1/wallet/stream: the current snapshot on connect,
// then every change. A slow client skips intermediate snapshots.
type streamer struct {
	wallet   Wallet
	metrics  *metric.Registry
	logger   logger.Logger
	origins  map[string]bool
	upgrader websocket.Upgrader
}

func newStreamer(wallet Wallet, origins []string, m *metric.Registry, l logger.Logger) *streamer {
	s := &streamer{
		wallet:  wallet,
		metrics: m,
		logger:  l,
		origins: make(map[string]bool),
	}
	for _, o := range origins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			s.origins[trimmed] = true
		}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// checkOrigin admits non-browser clients, same-host pages and listed origins.
func (s *streamer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.origins["*"] || s.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L(r.Context()).Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.StreamClients.Inc()
		defer s.metrics.StreamClients.Dec()
	}

	log := logger.L(r.Context())
	log.Debug("stream client connected")
	defer log.Debug("stream client disconnected")

	snaps, unsubscribe := s.wallet.Subscribe()
	defer unsubscribe()

	// The read side only watches for close and pongs.
	gone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(StreamFrame{Type: "snapshot", Data: walletResponse(snap)}); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
