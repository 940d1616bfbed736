package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/storage"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
	"github.com/yndnr/shadowhome-go/internal/telemetry/metric"
)

// Wallet is the part of service.WalletSession the handlers use.
type Wallet interface {
	Snapshot() domain.Snapshot
	Subscribe() (<-chan domain.Snapshot, func())
	Connect(ctx context.Context) (domain.Snapshot, error)
	Authenticate(ctx context.Context) (domain.Snapshot, error)
	Disconnect(ctx context.Context) (domain.Snapshot, error)
}

var _ Wallet = (*service.WalletSession)(nil)

// EventLister lists journal entries, newest first.
type EventLister interface {
	List(ctx context.Context, limit int) ([]storage.Entry, error)
}

// Config holds the handler dependencies. Wallet is required.
type Config struct {
	Wallet Wallet

	// Journal backs /v1/wallet/events. Nil reports the journal as disabled.
	Journal EventLister

	// Locator is consulted by /ready to report provider availability.
	Locator service.Locator

	// Metrics counts stream clients. Optional.
	Metrics *metric.Registry

	Logger            logger.Logger
	ChallengeGreeting string

	// StreamOrigins lists browser origins allowed on the snapshot stream.
	// Empty allows same-host and non-browser clients only.
	StreamOrigins []string

	Now func() time.Time
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	cfg    Config
	logger logger.Logger
	stream *streamer
	mux    *http.ServeMux
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	h := &Handler{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "http_handler"),
		mux:    http.NewServeMux(),
	}
	h.stream = newStreamer(cfg.Wallet, cfg.StreamOrigins, cfg.Metrics, h.logger)

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /v1/wallet", h.handleGetWallet)
	h.mux.HandleFunc("POST /v1/wallet/connect", h.handleConnect)
	h.mux.HandleFunc("POST /v1/wallet/authenticate", h.handleAuthenticate)
	h.mux.HandleFunc("POST /v1/wallet/disconnect", h.handleDisconnect)
	h.mux.HandleFunc("GET /v1/wallet/events", h.handleListEvents)
	h.mux.HandleFunc("GET /v1/wallet/challenge", h.handleChallenge)
	h.mux.Handle("GET /v1/wallet/stream", h.stream)

	h.mux.HandleFunc("POST /v1/signatures/verify", h.handleVerify)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// WriteError writes an error response with standard envelope format.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID extracts the request ID set by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if reqID := logger.RequestIDFromContext(r.Context()); reqID != "" {
		return reqID
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
// details travels with the error, e.g. the snapshot a failed operation left.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, details any) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = domain.ErrWaitTimeout
	}

	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		WriteError(w, r, ErrorCodeToHTTPStatus(code), code, err.Error(), details)
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	WriteError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, "internal server error", nil)
}

// ErrorCodeToHTTPStatus maps an SH-<AREA>-<NNNN> code to an HTTP status:
// the last four digits carry the status in their first three.
func ErrorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasPrefix(code, "SH-ARG-"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5020"), strings.HasSuffix(code, "-5021"):
		return http.StatusBadGateway
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasSuffix(code, "-5040"):
		return http.StatusGatewayTimeout
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"), strings.HasSuffix(code, "-4031"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
