package http

import (
	"net/http"

	"github.com/trusteelab/vpass/pkg/httpx"
	"github.com/trusteelab/vpass/pkg/slogx"
)

// HandleStatus handles GET /v1/verifications/{id}.
func (h *VerificationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("id")

	result, err := h.Sessions.GetStatus(ctx, sessionID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, StatusResponse{
		SessionID: result.SessionID,
		Status:    string(result.Status),
		Name:      result.Name,
		Assertion: result.Assertion,
	})
}
