package http

import (
	"encoding/json"
	"net/http"

	"github.com/trusteelab/vpass/internal/verify/service"
	"github.com/trusteelab/vpass/pkg/httpx"
	"github.com/trusteelab/vpass/pkg/normx"
	"github.com/trusteelab/vpass/pkg/slogx"
	"github.com/trusteelab/vpass/pkg/validate"
)

// VerificationHandler serves the verification session lifecycle endpoints.
type VerificationHandler struct {
	Sessions *service.SessionService
}

// phoneFormatOK is a coarse shape check on the claimed number. The ledger
// decides whether the number actually belongs to anyone.
func phoneFormatOK(phone string) bool {
	digits := normx.PhoneDigits(phone)
	return len(digits) >= 10 && len(digits) <= 11
}

// HandleInitiate handles POST /v1/verifications.
func (h *VerificationHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req InitiateRequest
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

	result, err := h.Sessions.Initiate(ctx, service.InitiateClaim{
		Name:          req.Name,
		Phone:         req.Phone,
		Carrier:       req.Carrier,
		AuthRequestID: req.AuthRequestID,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, InitiateResponse{
		SessionID: result.SessionID,
		OTP:       result.OTP,
	})
}
