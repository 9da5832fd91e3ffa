package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidAssertion covers a bad signature, malformed token, or
	// wrong signing algorithm.
	ErrInvalidAssertion = errors.New("jwtx: invalid assertion")

	// ErrExpiredAssertion is returned once the exp claim has passed.
	ErrExpiredAssertion = errors.New("jwtx: assertion expired")
)

// HS256Keyer signs and verifies assertions with a single symmetric key.
// The key must come from the configured secret boundary, not be generated
// ad hoc: assertions signed under a process-random key cannot be verified
// by any consumer after a restart.
type HS256Keyer struct {
	key []byte
}

// NewHS256Keyer wraps the given symmetric key material.
func NewHS256Keyer(key []byte) (*HS256Keyer, error) {
	if len(key) == 0 {
		return nil, errors.New("jwtx: empty signing key")
	}
	return &HS256Keyer{key: key}, nil
}

// Sign produces a compact HS256 JWT for the given claims.
func (k *HS256Keyer) Sign(claims AssertionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(k.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign assertion: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a compact assertion, enforcing the signing
// method and expiry before any claim is trusted.
func (k *HS256Keyer) Verify(compact string) (AssertionClaims, error) {
	var claims AssertionClaims

	token, err := jwt.ParseWithClaims(compact, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return k.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AssertionClaims{}, ErrExpiredAssertion
		}
		return AssertionClaims{}, ErrInvalidAssertion
	}
	if !token.Valid {
		return AssertionClaims{}, ErrInvalidAssertion
	}

	return claims, nil
}
