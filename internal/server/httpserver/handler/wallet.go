package handler

import (
	"context"
	"net/http"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

// handleGetWallet handles GET /v1/wallet.
func (h *Handler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, walletResponse(h.cfg.Wallet.Snapshot()))
}

// handleConnect handles POST /v1/wallet/connect.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "connect", h.cfg.Wallet.Connect)
}

// handleAuthenticate handles POST /v1/wallet/authenticate.
func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "authenticate", h.cfg.Wallet.Authenticate)
}

// handleDisconnect handles POST /v1/wallet/disconnect.
func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "disconnect", h.cfg.Wallet.Disconnect)
}

// runOperation calls a wallet operation and answers with the snapshot it
// left. On failure the snapshot goes into the error details so a client
// sees, for example, that a refused signature kept the wallet connected.
func (h *Handler) runOperation(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context) (domain.Snapshot, error)) {
	snap, err := fn(r.Context())
	if err != nil {
		logger.L(r.Context()).Info("wallet operation failed",
			"op", op,
			"code", domain.GetErrorCode(err),
			"state", snap.State.String(),
		)
		h.handleServiceError(w, r, err, walletResponse(snap))
		return
	}
	h.writeJSON(w, r, http.StatusOK, walletResponse(snap))
}
