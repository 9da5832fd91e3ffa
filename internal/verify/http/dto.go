package http

// InitiateRequest is the relying party's claim that opens a session.
type InitiateRequest struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Carrier       string `json:"carrier"`
	AuthRequestID string `json:"auth_request_id"`
}

// InitiateResponse returns the session handle and the challenge code.
// The code is in-band here; production deployments deliver it out of band
// and strip it from this payload at the gateway.
type InitiateResponse struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
}

// ChallengeRequest re-asserts the full identity to earn a fresh code.
type ChallengeRequest struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Carrier       string `json:"carrier" validate:"required"`
	BirthFragment string `json:"birth_fragment" validate:"required"`
}

type ChallengeResponse struct {
	OTP string `json:"otp"`
}

// ConfirmRequest submits the challenge code. Success is a bare 204.
type ConfirmRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// StatusResponse is the end-user polling view. Assertion is only present
// once the session is COMPLETED.
type StatusResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Name      string `json:"name"`
	Assertion string `json:"assertion,omitempty"`
}

// IdentityResponse is the S2S disclosure view.
type IdentityResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}
