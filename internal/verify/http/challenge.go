package http

import (
	"encoding/json"
	"net/http"

	"github.com/trusteelab/vpass/internal/verify/service"
	"github.com/trusteelab/vpass/pkg/httpx"
	"github.com/trusteelab/vpass/pkg/slogx"
	"github.com/trusteelab/vpass/pkg/validate"
)

// HandleChallenge handles POST /v1/verifications/{id}/challenge.
func (h *VerificationHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("id")

	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	if !phoneFormatOK(req.Phone) {
		httpx.NewError(http.StatusBadRequest, "invalid_format", "Phone number is malformed").Write(w)
		return
	}

	otp, err := h.Sessions.RequestNewChallenge(ctx, sessionID, service.ChallengeClaim{
		Name:          req.Name,
		Phone:         req.Phone,
		Carrier:       req.Carrier,
		BirthFragment: req.BirthFragment,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ChallengeResponse{OTP: otp})
}
