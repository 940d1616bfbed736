package handler

import (
	"net/http"
	"strconv"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/storage"
)

// Event listing limits.
const (
	DefaultEventLimit = 50
	MaxEventLimit     = storage.DefaultMaxEntries
)

// handleListEvents handles GET /v1/wallet/events?limit=N.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Journal == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("journal disabled"), nil)
		return
	}

	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxEventLimit {
			WriteError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code,
				"limit must be between 1 and "+strconv.Itoa(MaxEventLimit), nil)
			return
		}
		limit = n
	}

	entries, err := h.cfg.Journal.List(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrStorageError.WithCause(err), nil)
		return
	}

	items := make([]EventItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, EventItem{
			ID:       e.ID,
			At:       e.At,
			OpID:     e.OpID,
			Op:       e.Op,
			From:     e.From.String(),
			To:       e.To.String(),
			Identity: e.Identity.String(),
			Code:     e.Code,
			Message:  e.Message,
		})
	}
	h.writeJSON(w, r, http.StatusOK, EventsResponse{Items: items, Total: len(items)})
}
