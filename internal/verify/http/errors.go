package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/trusteelab/vpass/internal/verify/service"
	"github.com/trusteelab/vpass/pkg/httpx"
)

// serviceErrors maps lifecycle sentinels to wire errors. Anything not in
// the table is an internal failure and surfaces as an opaque 500.
var serviceErrors = map[error]*httpx.Error{
	service.ErrMissingField:       httpx.NewError(http.StatusBadRequest, "missing_field", "A required field is missing or empty"),
	service.ErrInvalidFormat:      httpx.NewError(http.StatusBadRequest, "invalid_format", "A field value is malformed"),
	service.ErrSessionNotFound:    httpx.NewError(http.StatusNotFound, "session_not_found", "No verification session exists for this id"),
	service.ErrSessionExpired:     httpx.NewError(http.StatusGone, "session_expired", "The verification session has expired"),
	service.ErrIdentityMismatch:   httpx.NewError(http.StatusForbidden, "identity_mismatch", "The submitted identity does not match this session"),
	service.ErrOTPMismatch:        httpx.NewError(http.StatusBadRequest, "otp_mismatch", "The submitted code is incorrect"),
	service.ErrDisclosureMismatch: httpx.NewError(http.StatusForbidden, "identity_disclosure_mismatch", "The identity does not match the carrier record"),
	service.ErrTooManyAttempts:    httpx.NewError(http.StatusTooManyRequests, "too_many_attempts", "Too many failed confirmation attempts for this session"),
}

var errServer = httpx.NewError(http.StatusInternalServerError, "server_error", "An internal error occurred")

func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	for sentinel, wire := range serviceErrors {
		if errors.Is(err, sentinel) {
			wire.Write(w)
			return
		}
	}
	log.Error("unhandled service error", "err", err)
	errServer.Write(w)
}

func writeValidationError(w http.ResponseWriter, err error) {
	httpx.NewError(http.StatusBadRequest, "missing_field", err.Error()).Write(w)
}

func writeBadJSON(w http.ResponseWriter) {
	httpx.NewError(http.StatusBadRequest, "invalid_format", "Request body is not valid JSON").Write(w)
}
