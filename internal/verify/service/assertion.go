package service

import (
	"time"

	"github.com/trusteelab/vpass/pkg/jwtx"
)

// AssertionService mints signed verification assertions for completed
// sessions. Each call produces a fresh token; nothing is persisted.
type AssertionService struct {
	Keyer  *jwtx.HS256Keyer
	Issuer string

	// TTL is the assertion lifetime. Zero means jwtx.DefaultAssertionTTL.
	TTL time.Duration
}

func (s *AssertionService) Issue(sessionID, authRequestID, name, ci string) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAssertionTTL
	}
	claims := jwtx.NewAssertionClaims(sessionID, authRequestID, name, ci, s.Issuer, ttl, time.Now())
	return s.Keyer.Sign(claims)
}
