package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trusteelab/vpass/internal/verify/domain"
	"github.com/trusteelab/vpass/internal/verify/store"
	"github.com/trusteelab/vpass/internal/verify/store/drivers/sqlite"
	"github.com/trusteelab/vpass/pkg/cryptox"
	"github.com/trusteelab/vpass/pkg/idx"
	"github.com/trusteelab/vpass/pkg/jwtx"
	"github.com/trusteelab/vpass/pkg/normx"
)

// Seeded carrier records used throughout the service tests.
const (
	seedName    = "김중수"
	seedPhone   = "01095119924"
	seedCarrier = "SKT"

	otherName    = "방수진"
	otherPhone   = "01087176882"
	otherCarrier = "KT"
)

type testEnv struct {
	store    store.Store
	cipher   *cryptox.Cipher
	keyer    *jwtx.HS256Keyer
	sessions *SessionService
	ledger   *LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cipher, err := cryptox.NewCipher([]byte("test-pii-key"))
	require.NoError(t, err)

	keyer, err := jwtx.NewHS256Keyer([]byte("test-assertion-key"))
	require.NoError(t, err)

	ledger := &LedgerService{Store: st}

	return &testEnv{
		store:  st,
		cipher: cipher,
		keyer:  keyer,
		ledger: ledger,
		sessions: &SessionService{
			Store:      st,
			Cipher:     cipher,
			Ledger:     ledger,
			Assertions: &AssertionService{Keyer: keyer, Issuer: "vpass-test"},
		},
	}
}

// insertSession writes a session directly, bypassing Initiate, so tests can
// control created_at.
func (e *testEnv) insertSession(t *testing.T, name, phone, carrier, otp string, createdAt time.Time) string {
	t.Helper()

	encName, err := e.cipher.EncryptString(name)
	require.NoError(t, err)
	encPhone, err := e.cipher.EncryptString(phone)
	require.NoError(t, err)

	id := idx.New().String()
	require.NoError(t, e.store.Sessions().CreateSession(context.Background(), domain.Session{
		ID:             id,
		EncryptedName:  encName,
		EncryptedPhone: encPhone,
		Carrier:        carrier,
		OTP:            otp,
		Status:         domain.StatusPending,
		CreatedAt:      createdAt.UTC(),
	}))
	return id
}

func TestSessionService_Initiate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("creates pending session with six digit otp", func(t *testing.T) {
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name:          seedName,
			Phone:         seedPhone,
			Carrier:       seedCarrier,
			AuthRequestID: "auth-req-1",
		})
		require.NoError(t, err)
		require.NotEmpty(t, result.SessionID)
		require.Len(t, result.OTP, cryptox.OTPDigits)

		session, err := env.store.Sessions().GetSession(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, session.Status)
		require.Equal(t, "auth-req-1", session.AuthRequestID)
		require.Equal(t, result.OTP, session.OTP)

		// PII columns hold ciphertext, never the claim itself.
		require.NotEqual(t, seedName, session.EncryptedName)
		require.NotEqual(t, seedPhone, session.EncryptedPhone)

		name, err := env.cipher.DecryptString(session.EncryptedName)
		require.NoError(t, err)
		require.Equal(t, seedName, name)
	})

	t.Run("does not consult the ledger", func(t *testing.T) {
		// An entirely unknown identity is accepted at initiation; the
		// ledger check belongs to confirmation.
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name:  "아무개",
			Phone: "01099999999",
		})
		require.NoError(t, err)
		require.NotEmpty(t, result.SessionID)
	})

	t.Run("consecutive sessions get distinct ids and codes", func(t *testing.T) {
		a, err := env.sessions.Initiate(ctx, InitiateClaim{Name: seedName, Phone: seedPhone})
		require.NoError(t, err)
		b, err := env.sessions.Initiate(ctx, InitiateClaim{Name: seedName, Phone: seedPhone})
		require.NoError(t, err)
		require.NotEqual(t, a.SessionID, b.SessionID)
	})
}

func TestSessionService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path completes and derives ci", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

		session, err := env.store.Sessions().GetSession(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, session.Status)
		require.Equal(t, cryptox.Fingerprint(normx.PhoneDigits(seedPhone)), session.CI)
	})

	t.Run("same identity gives the same ci across sessions", func(t *testing.T) {
		env := newTestEnv(t)

		var cis []string
		for range 2 {
			result, err := env.sessions.Initiate(ctx, InitiateClaim{
				Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
			})
			require.NoError(t, err)
			require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

			session, err := env.store.Sessions().GetSession(ctx, result.SessionID)
			require.NoError(t, err)
			cis = append(cis, session.CI)
		}
		require.Equal(t, cis[0], cis[1])
	})

	t.Run("wrong otp leaves session pending and retryable", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		err = env.sessions.Confirm(ctx, result.SessionID, "000000")
		require.ErrorIs(t, err, ErrOTPMismatch)

		session, err := env.store.Sessions().GetSession(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, session.Status)
		require.Equal(t, 1, session.Attempts)

		// The correct code still works afterwards.
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))
	})

	t.Run("locks out after repeated wrong codes", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		for range MaxConfirmAttempts {
			err = env.sessions.Confirm(ctx, result.SessionID, "000000")
			require.ErrorIs(t, err, ErrOTPMismatch)
		}

		// Even the correct code is rejected once locked out.
		err = env.sessions.Confirm(ctx, result.SessionID, result.OTP)
		require.ErrorIs(t, err, ErrTooManyAttempts)
	})

	t.Run("carrier not matching the record of truth is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		// Right name and phone, but the carrier belongs to someone else.
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: otherCarrier,
		})
		require.NoError(t, err)

		err = env.sessions.Confirm(ctx, result.SessionID, result.OTP)
		require.ErrorIs(t, err, ErrDisclosureMismatch)

		session, err := env.store.Sessions().GetSession(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, session.Status)
	})

	t.Run("identity absent from the ledger is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: "아무개", Phone: "01099999999", Carrier: seedCarrier,
		})
		require.NoError(t, err)

		err = env.sessions.Confirm(ctx, result.SessionID, result.OTP)
		require.ErrorIs(t, err, ErrDisclosureMismatch)
	})

	t.Run("expired session reports expiry even for a wrong code", func(t *testing.T) {
		env := newTestEnv(t)
		old := time.Now().Add(-DefaultSessionTTL - time.Minute)
		id := env.insertSession(t, seedName, seedPhone, seedCarrier, "123456", old)

		err := env.sessions.Confirm(ctx, id, "999999")
		require.ErrorIs(t, err, ErrSessionExpired)

		err = env.sessions.Confirm(ctx, id, "123456")
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)
		require.ErrorIs(t, env.sessions.Confirm(ctx, "", "123456"), ErrMissingField)
		require.ErrorIs(t, env.sessions.Confirm(ctx, "some-id", "  "), ErrMissingField)
	})

	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.sessions.Confirm(ctx, idx.New().String(), "123456")
		require.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionService_RequestNewChallenge(t *testing.T) {
	ctx := context.Background()

	validClaim := func() ChallengeClaim {
		return ChallengeClaim{
			Name:          seedName,
			Phone:         seedPhone,
			Carrier:       seedCarrier,
			BirthFragment: "850214",
		}
	}

	t.Run("replaces the otp on a matching claim", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		otp, err := env.sessions.RequestNewChallenge(ctx, result.SessionID, validClaim())
		require.NoError(t, err)
		require.Len(t, otp, cryptox.OTPDigits)

		// The original code is dead; only the fresh one confirms.
		err = env.sessions.Confirm(ctx, result.SessionID, result.OTP)
		if err == nil {
			t.Skip("otp collision, can't distinguish old from new")
		}
		require.ErrorIs(t, err, ErrOTPMismatch)
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, otp))
	})

	t.Run("fixes up the carrier recorded at initiation", func(t *testing.T) {
		env := newTestEnv(t)
		// Initiated without a carrier; the re-challenge supplies it.
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone,
		})
		require.NoError(t, err)

		otp, err := env.sessions.RequestNewChallenge(ctx, result.SessionID, validClaim())
		require.NoError(t, err)

		session, err := env.store.Sessions().GetSession(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, seedCarrier, session.Carrier)

		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, otp))
	})

	t.Run("rejects a claim that does not match the stored one", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		for name, claim := range map[string]ChallengeClaim{
			"different name": {
				Name: otherName, Phone: seedPhone, Carrier: seedCarrier, BirthFragment: "850214",
			},
			"different phone": {
				Name: seedName, Phone: otherPhone, Carrier: seedCarrier, BirthFragment: "850214",
			},
		} {
			t.Run(name, func(t *testing.T) {
				_, err := env.sessions.RequestNewChallenge(ctx, result.SessionID, claim)
				require.ErrorIs(t, err, ErrIdentityMismatch)
			})
		}

		// The stored claim and code survive every rejection untouched.
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))
	})

	t.Run("rejects a carrier the ledger disagrees with", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		claim := validClaim()
		claim.Carrier = otherCarrier
		_, err = env.sessions.RequestNewChallenge(ctx, result.SessionID, claim)
		require.ErrorIs(t, err, ErrIdentityMismatch)
	})

	t.Run("rejects a malformed birth fragment", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		for _, fragment := range []string{"", "85021", "8502144"} {
			claim := validClaim()
			claim.BirthFragment = fragment
			_, err := env.sessions.RequestNewChallenge(ctx, result.SessionID, claim)
			require.ErrorIs(t, err, ErrInvalidFormat, "fragment %q", fragment)
		}
	})

	t.Run("accepts phone formatting differences", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		claim := validClaim()
		claim.Phone = "010-9511-9924"
		_, err = env.sessions.RequestNewChallenge(ctx, result.SessionID, claim)
		require.NoError(t, err)
	})

	t.Run("expired session", func(t *testing.T) {
		env := newTestEnv(t)
		old := time.Now().Add(-DefaultSessionTTL - time.Minute)
		id := env.insertSession(t, seedName, seedPhone, seedCarrier, "123456", old)

		_, err := env.sessions.RequestNewChallenge(ctx, id, validClaim())
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.RequestNewChallenge(ctx, idx.New().String(), validClaim())
		require.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionService_GetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("pending session has no assertion", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		status, err := env.sessions.GetStatus(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, status.Status)
		require.Equal(t, seedName, status.Name)
		require.Empty(t, status.Assertion)
	})

	t.Run("completed session carries a verifiable assertion", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier, AuthRequestID: "auth-req-9",
		})
		require.NoError(t, err)
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

		status, err := env.sessions.GetStatus(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, status.Status)
		require.NotEmpty(t, status.Assertion)

		claims, err := env.keyer.Verify(status.Assertion)
		require.NoError(t, err)
		require.Equal(t, result.SessionID, claims.ID)
		require.Equal(t, "auth-req-9", claims.AuthRequestID)
		require.Equal(t, seedName, claims.Name)
		require.Equal(t, cryptox.Fingerprint(seedPhone), claims.CI)
	})

	t.Run("each status call mints a distinct assertion", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

		a, err := env.sessions.GetStatus(ctx, result.SessionID)
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond) // iat has second granularity
		b, err := env.sessions.GetStatus(ctx, result.SessionID)
		require.NoError(t, err)
		require.NotEqual(t, a.Assertion, b.Assertion)
	})

	t.Run("past the retention deadline the session is absent", func(t *testing.T) {
		env := newTestEnv(t)
		old := time.Now().Add(-DefaultSessionTTL - time.Minute)
		id := env.insertSession(t, seedName, seedPhone, seedCarrier, "123456", old)

		_, err := env.sessions.GetStatus(ctx, id)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.GetStatus(ctx, idx.New().String())
		require.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionService_VerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the decrypted claim", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

		identity, err := env.sessions.VerifyIdentity(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, identity.Status)
		require.Equal(t, seedName, identity.Name)
		require.Equal(t, seedPhone, identity.Phone)
	})

	t.Run("pending sessions are visible too", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)

		identity, err := env.sessions.VerifyIdentity(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, identity.Status)
	})

	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.VerifyIdentity(ctx, idx.New().String())
		require.ErrorIs(t, err, ErrSessionNotFound)
	})
}
