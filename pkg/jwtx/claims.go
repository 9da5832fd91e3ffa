package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAssertionTTL is the default lifetime of an issued assertion.
// Deliberately longer than the verification session TTL: the assertion has
// to stay usable by the relying party after the session record itself has
// been swept.
const DefaultAssertionTTL = time.Hour

// AssertionClaims is the claim set minted when a verification session
// reaches COMPLETED. The jti is the session id; consumers correlate via
// auth_request_id. Changes must stay additive so relying parties keep
// parsing older assertions.
type AssertionClaims struct {
	jwt.RegisteredClaims

	// AuthRequestID is the relying party's own correlation id, carried
	// through unchanged from initiation. Empty if none was supplied.
	AuthRequestID string `json:"auth_request_id,omitempty"`

	// Name is the ledger-verified legal name.
	Name string `json:"name"`

	// CI is the derived connecting information: a pseudonymous
	// per-subscriber handle, safe to share across parties.
	CI string `json:"ci"`
}

// NewAssertionClaims builds the claim set for a completed session.
func NewAssertionClaims(sessionID, authRequestID, name, ci, issuer string, ttl time.Duration, now time.Time) AssertionClaims {
	return AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AuthRequestID: authRequestID,
		Name:          name,
		CI:            ci,
	}
}
