package http

import (
	"net/http"

	"github.com/trusteelab/vpass/pkg/httpx"
	"github.com/trusteelab/vpass/pkg/slogx"
)

// HandleIdentity handles GET /v1/verifications/{id}/identity. Disclosure
// of the raw claim is gated by the service credential middleware on the
// route, never here.
func (h *VerificationHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("id")

	result, err := h.Sessions.VerifyIdentity(ctx, sessionID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, IdentityResponse{
		Status: string(result.Status),
		Name:   result.Name,
		Phone:  result.Phone,
	})
}
