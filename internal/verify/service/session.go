package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/trusteelab/vpass/internal/verify/domain"
	"github.com/trusteelab/vpass/internal/verify/metrics"
	"github.com/trusteelab/vpass/internal/verify/store"
	"github.com/trusteelab/vpass/pkg/cryptox"
	"github.com/trusteelab/vpass/pkg/idx"
	"github.com/trusteelab/vpass/pkg/normx"
	"github.com/trusteelab/vpass/pkg/slogx"
)

const (
	// DefaultSessionTTL is the retention ceiling for a verification
	// session. createdAt + TTL is an absolute deadline; retries never
	// extend it.
	DefaultSessionTTL = 3 * time.Minute

	// MaxConfirmAttempts bounds failed OTP submissions per session.
	MaxConfirmAttempts = 5

	// birthFragmentLength is the expected width of the birth-date
	// fragment on re-challenge. Coarse format check only.
	birthFragmentLength = 6
)

var (
	ErrMissingField       = errors.New("missing_field")
	ErrInvalidFormat      = errors.New("invalid_format")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrSessionExpired     = errors.New("session_expired")
	ErrIdentityMismatch   = errors.New("identity_mismatch")
	ErrOTPMismatch        = errors.New("otp_mismatch")
	ErrDisclosureMismatch = errors.New("identity_disclosure_mismatch")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
)

// InitiateClaim is the identity a relying party asserts at initiation.
type InitiateClaim struct {
	Name          string
	Phone         string
	Carrier       string // optional at this stage
	AuthRequestID string // optional, opaque, carried through unchanged
}

// ChallengeClaim is the full claim the end user re-submits when requesting
// a fresh OTP.
type ChallengeClaim struct {
	Name          string
	Phone         string
	Carrier       string
	BirthFragment string
}

// SessionService owns every verification-session mutation: it is the only
// code that encrypts or decrypts the stored claim, and the only code that
// transitions status.
type SessionService struct {
	Store      store.Store
	Cipher     *cryptox.Cipher
	Ledger     *LedgerService
	Assertions *AssertionService
	Metrics    *metrics.Metrics

	// TTL is the session retention ceiling. Zero means DefaultSessionTTL.
	TTL time.Duration
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

// Initiate creates a PENDING session for the claimed identity and issues
// the first OTP. The claim is deliberately not checked against the ledger
// here; that happens at confirmation and re-challenge.
func (s *SessionService) Initiate(ctx context.Context, claim InitiateClaim) (domain.InitiateResult, error) {
	log := slogx.FromContext(ctx)

	encName, err := s.Cipher.EncryptString(strings.TrimSpace(claim.Name))
	if err != nil {
		return domain.InitiateResult{}, fmt.Errorf("encrypt name: %w", err)
	}
	encPhone, err := s.Cipher.EncryptString(strings.TrimSpace(claim.Phone))
	if err != nil {
		return domain.InitiateResult{}, fmt.Errorf("encrypt phone: %w", err)
	}

	otp, err := cryptox.GenerateOTP(cryptox.OTPDigits)
	if err != nil {
		return domain.InitiateResult{}, fmt.Errorf("generate otp: %w", err)
	}

	session := domain.Session{
		ID:             idx.New().String(),
		AuthRequestID:  strings.TrimSpace(claim.AuthRequestID),
		EncryptedName:  encName,
		EncryptedPhone: encPhone,
		Carrier:        strings.TrimSpace(claim.Carrier),
		OTP:            otp,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.InitiateResult{}, fmt.Errorf("create session: %w", err)
	}

	// In production the OTP goes out of band (SMS/push); it is returned
	// in-band here for headless flows. Never log the code itself.
	log.Info("verification session initiated", "session_id", session.ID)

	return domain.InitiateResult{SessionID: session.ID, OTP: otp}, nil
}

// RequestNewChallenge re-validates the full claim and replaces the OTP.
// Any failed check leaves the stored claim untouched: a rejected
// re-challenge must never be able to corrupt the session.
func (s *SessionService) RequestNewChallenge(ctx context.Context, sessionID string, claim ChallengeClaim) (string, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.Expired(s.ttl(), now) {
		return "", ErrSessionExpired
	}

	storedName, storedPhone, err := s.decryptClaim(session)
	if err != nil {
		return "", err
	}

	// The re-submitted claim must match what the relying party
	// registered at initiation.
	if normx.PhoneDigits(claim.Phone) != normx.PhoneDigits(storedPhone) ||
		!normx.NameEqual(claim.Name, storedName) {
		log.Warn("re-challenge claim does not match stored claim", "session_id", sessionID)
		return "", ErrIdentityMismatch
	}

	// And it must match the carrier of record, including the newly
	// claimed carrier.
	ok, err := s.Ledger.Matches(ctx, claim.Phone, claim.Name, claim.Carrier)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Warn("re-challenge claim does not match carrier record", "session_id", sessionID)
		return "", ErrIdentityMismatch
	}

	if utf8.RuneCountInString(claim.BirthFragment) != birthFragmentLength {
		return "", ErrInvalidFormat
	}

	otp, err := cryptox.GenerateOTP(cryptox.OTPDigits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	// All checks passed: overwrite carrier and OTP. Status and
	// created_at stay as they are; a re-challenge never extends life.
	if err := s.Store.Sessions().ReplaceChallenge(ctx, sessionID, strings.TrimSpace(claim.Carrier), otp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrSessionExpired // swept between read and write
		}
		return "", fmt.Errorf("replace challenge: %w", err)
	}

	log.Info("challenge re-issued", "session_id", sessionID)
	return otp, nil
}

// Confirm checks the submitted OTP and, on match, runs the final identity
// cross-check against the ledger before transitioning to COMPLETED. OTP
// possession alone does not prove carrier-of-record identity, so the
// ledger check stays last even though the code matched.
func (s *SessionService) Confirm(ctx context.Context, sessionID, otp string) error {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	sessionID = strings.TrimSpace(sessionID)
	otp = strings.TrimSpace(otp)
	if sessionID == "" || otp == "" {
		return ErrMissingField
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Expired(s.ttl(), now) {
		s.Metrics.IncConfirmOutcome("expired")
		return ErrSessionExpired
	}

	if session.Attempts >= MaxConfirmAttempts {
		s.Metrics.IncConfirmOutcome("locked_out")
		return ErrTooManyAttempts
	}

	if strings.TrimSpace(session.OTP) != otp {
		if _, err := s.Store.Sessions().IncrementAttempts(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("increment attempts: %w", err)
		}
		s.Metrics.IncConfirmOutcome("otp_mismatch")
		log.Warn("otp mismatch", "session_id", sessionID)
		return ErrOTPMismatch
	}

	name, phone, err := s.decryptClaim(session)
	if err != nil {
		return err
	}

	ok, err := s.Ledger.Matches(ctx, phone, name, session.Carrier)
	if err != nil {
		return err
	}
	if !ok {
		s.Metrics.IncConfirmOutcome("disclosure_mismatch")
		log.Warn("identity disclosure mismatch at final check", "session_id", sessionID, "carrier", session.Carrier)
		return ErrDisclosureMismatch
	}

	ci := cryptox.Fingerprint(normx.PhoneDigits(phone))

	// Conditional transition: if the sweeper won the race (or the record
	// aged out between read and write), the update applies to zero rows
	// and the caller sees expiry, not a resurrected session.
	if err := s.Store.Sessions().CompleteSession(ctx, sessionID, ci, now.Add(-s.ttl())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.IncConfirmOutcome("expired")
			return ErrSessionExpired
		}
		return fmt.Errorf("complete session: %w", err)
	}

	s.Metrics.IncConfirmOutcome("completed")
	log.Info("verification completed", "session_id", sessionID)
	return nil
}

// GetStatus is the end-user polling view. A fresh assertion is minted on
// every call for a COMPLETED session; assertions are never cached.
func (s *SessionService) GetStatus(ctx context.Context, sessionID string) (domain.StatusResult, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return domain.StatusResult{}, err
	}
	// Past the deadline the session is as good as swept.
	if session.Expired(s.ttl(), time.Now().UTC()) {
		return domain.StatusResult{}, ErrSessionNotFound
	}

	name, err := s.Cipher.DecryptString(session.EncryptedName)
	if err != nil {
		return domain.StatusResult{}, fmt.Errorf("decrypt name: %w", err)
	}

	result := domain.StatusResult{
		SessionID: session.ID,
		Status:    session.Status,
		Name:      name,
	}

	if session.Status == domain.StatusCompleted {
		assertion, err := s.Assertions.Issue(session.ID, session.AuthRequestID, name, session.CI)
		if err != nil {
			return domain.StatusResult{}, fmt.Errorf("issue assertion: %w", err)
		}
		result.Assertion = assertion
		s.Metrics.IncAssertionsIssued()
	}

	return result, nil
}

// VerifyIdentity is the S2S read: decrypted status, name, and phone, with
// no assertion minted. Access control happens upstream via the service
// credential.
func (s *SessionService) VerifyIdentity(ctx context.Context, sessionID string) (domain.IdentityResult, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return domain.IdentityResult{}, err
	}
	if session.Expired(s.ttl(), time.Now().UTC()) {
		return domain.IdentityResult{}, ErrSessionNotFound
	}

	name, phone, err := s.decryptClaim(session)
	if err != nil {
		return domain.IdentityResult{}, err
	}

	return domain.IdentityResult{
		Status: session.Status,
		Name:   name,
		Phone:  phone,
	}, nil
}

func (s *SessionService) getSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.Store.Sessions().GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *SessionService) decryptClaim(session domain.Session) (name, phone string, err error) {
	name, err = s.Cipher.DecryptString(session.EncryptedName)
	if err != nil {
		return "", "", fmt.Errorf("decrypt name: %w", err)
	}
	phone, err = s.Cipher.DecryptString(session.EncryptedPhone)
	if err != nil {
		return "", "", fmt.Errorf("decrypt phone: %w", err)
	}
	return name, phone, nil
}
