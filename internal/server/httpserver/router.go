package httpserver

import (
	"net/http"

	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
	"github.com/yndnr/shadowhome-go/internal/telemetry/metric"
)

// TokenQueryParam carries the bearer token on websocket handshakes.
const TokenQueryParam = "access_token"

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves /health, /ready and /v1/*.
	Handler http.Handler

	// Bridge, when set, is mounted at GET /v1/bridge.
	Bridge http.Handler

	// Metrics, when set, is served at MetricsPath and records requests.
	Metrics     *metric.Registry
	MetricsPath string

	// MetricsAuthRequired puts the metrics endpoint behind AuthToken.
	MetricsAuthRequired bool

	Logger logger.Logger

	// AuthToken is the bearer token required on /v1 routes. Empty disables
	// authentication.
	AuthToken string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RateLimiter limits requests per client IP. Nil disables limiting.
	RateLimiter *RateLimiter

	// EnableAudit enables request logging and request metrics.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		MetricsPath: "/metrics",
		RateLimiter: NewRateLimiter(20, 40),
		EnableAudit: true,
	}
}

// NewRouter builds the HTTP handler with all routes and middleware.
//
// Order: Recover -> CORS -> RequestID -> RateLimit -> Auth -> Audit -> routes
func NewRouter(cfg *RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.Default()
	}
	l = l.With("component", "http")

	mux := http.NewServeMux()
	mux.Handle("GET /health", cfg.Handler)
	mux.Handle("GET /ready", cfg.Handler)
	mux.Handle("/v1/", cfg.Handler)

	if cfg.Bridge != nil {
		mux.Handle("GET /v1/bridge", cfg.Bridge)
	}

	skipAuth := []string{"/health", "/ready"}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, cfg.Metrics.Handler())
		if !cfg.MetricsAuthRequired {
			skipAuth = append(skipAuth, path)
		}
	}

	middlewares := []Middleware{
		Recover(l),
		CORS(cfg.CORSAllowedOrigins),
		RequestID(),
	}
	if cfg.RateLimiter != nil {
		middlewares = append(middlewares, RateLimit(cfg.RateLimiter))
	}
	middlewares = append(middlewares, Auth(AuthConfig{
		Token:      cfg.AuthToken,
		SkipPaths:  skipAuth,
		QueryParam: TokenQueryParam,
	}))
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(l, cfg.Metrics))
	}

	return Chain(mux, middlewares...)
}
