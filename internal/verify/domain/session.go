package domain

import "time"

// Status is the lifecycle state of a verification session. There is no
// explicit failed state: failed confirmations leave the session PENDING and
// retryable until the sweeper removes it. Absence of the record is the only
// other terminal outcome.
type Status string

const (
	// StatusPending means the session awaits a correct OTP.
	StatusPending Status = "PENDING"
	// StatusCompleted is the terminal success state.
	StatusCompleted Status = "COMPLETED"
)

// Session is one identity-verification attempt. The id is the opaque handle
// the relying party holds; name and phone are stored only as ciphertext.
type Session struct {
	ID string // ULID

	// AuthRequestID is the relying party's correlation id, carried
	// through unchanged. May be empty.
	AuthRequestID string

	// EncryptedName and EncryptedPhone hold PII ciphertext from the PII
	// cipher. Plaintext never touches storage or logs.
	EncryptedName  string
	EncryptedPhone string

	// Carrier is the claimed carrier code (SKT, KT, LGU+, ...). Not
	// classified as PII in this model.
	Carrier string

	// OTP is the current one-time code. Replaced, never appended, on
	// re-challenge. Always present while the session is PENDING.
	OTP string

	// CI is the derived connecting information. Set exactly when status
	// becomes COMPLETED.
	CI string

	Status Status

	// Attempts counts failed confirm tries. Confirmation locks out after
	// MaxConfirmAttempts.
	Attempts int

	// CreatedAt is the single source of truth for expiry. Retries and
	// re-challenges never refresh it.
	CreatedAt time.Time
}

// ExpiresAt returns the absolute deadline after which no operation may
// treat the session as valid, swept or not.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// Expired reports whether the session is past its deadline at the given
// instant.
func (s Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.After(s.ExpiresAt(ttl))
}

// InitiateResult is returned from session creation. The OTP is surfaced
// in-band only to support headless testing; production delivery is
// out-of-band.
type InitiateResult struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
}

// StatusResult is the end-user polling view of a session. The assertion is
// present only once the session is COMPLETED, and is freshly minted per
// call.
type StatusResult struct {
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`
	Name      string `json:"name"`
	Assertion string `json:"assertion,omitempty"`
}

// IdentityResult is the S2S view: decrypted identity plus status, no
// assertion. Gated by the shared service credential upstream.
type IdentityResult struct {
	Status Status `json:"status"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}
