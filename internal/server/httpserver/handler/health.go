package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/shadowhome-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   h.cfg.Now().UTC().Format(time.RFC3339),
		Build:  buildinfo.Get(),
	})
}

// handleReady handles GET /ready. A missing provider does not make the
// server unready: a browser page or extension may attach later.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Status:  "ready",
		Time:    h.cfg.Now().UTC().Format(time.RFC3339),
		State:   h.cfg.Wallet.Snapshot().State.String(),
		Journal: h.cfg.Journal != nil,
	}
	if h.cfg.Locator != nil {
		if p, ok := h.cfg.Locator.Locate(); ok && p != nil {
			resp.ProviderAvailable = p.IsRecognized()
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
