package http

import (
	"encoding/json"
	"net/http"

	"github.com/trusteelab/vpass/pkg/slogx"
	"github.com/trusteelab/vpass/pkg/validate"
)

// HandleConfirm handles POST /v1/verifications/{id}/confirm.
func (h *VerificationHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("id")

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.Sessions.Confirm(ctx, sessionID, req.OTP); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
