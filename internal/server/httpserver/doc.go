// Package httpserver provides the HTTP/HTTPS server for ShadowHome.
//
// Routes (served by the handler subpackage unless noted):
//
//   - Wallet: /v1/wallet, /v1/wallet/{connect,authenticate,disconnect}
//   - Journal and utilities: /v1/wallet/events, /v1/wallet/challenge,
//     /v1/signatures/verify
//   - Streams: /v1/wallet/stream, /v1/bridge (browser bridge provider)
//   - Health: /health, /ready, /metrics (Prometheus)
//
// Middleware chain: Recover, CORS, RequestID, RateLimit, Auth, Audit.
// TLS certificates are hot-reloaded through tlsroots.KeyPair.
package httpserver
