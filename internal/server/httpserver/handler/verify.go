package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/pkg/sigverify"
)

// maxVerifyBody bounds the verify request body.
const maxVerifyBody = 64 << 10

// handleChallenge handles GET /v1/wallet/challenge. The preview is what the
// next authentication would ask the wallet to sign, apart from its timestamp.
func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	c := domain.NewChallenge(h.cfg.ChallengeGreeting, h.cfg.Now())
	h.writeJSON(w, r, http.StatusOK, ChallengeResponse{Challenge: c, Encoding: domain.ChallengeEncoding})
}

// handleVerify handles POST /v1/signatures/verify.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVerifyBody)).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return
	}

	var missing []string
	if req.Signature == "" {
		missing = append(missing, "signature")
	}
	if req.Message == "" {
		missing = append(missing, "message")
	}
	if req.Identity == "" {
		missing = append(missing, "identity")
	}
	if len(missing) > 0 {
		WriteError(w, r, http.StatusBadRequest, domain.ErrMissingArgument.Code,
			"missing required argument", map[string][]string{"missing": missing})
		return
	}

	h.writeJSON(w, r, http.StatusOK, VerifyResponse{
		Valid: sigverify.VerifyEncoded(req.Signature, req.Message, req.Identity),
	})
}
