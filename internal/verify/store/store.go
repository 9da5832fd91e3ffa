package store

import (
	"context"
	"errors"
	"time"

	"github.com/trusteelab/vpass/internal/verify/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Sessions() Sessions
	Subscribers() Subscribers

	ApplyMigrations() error

	// WithTx executes fn within a transaction; fn returning an error
	// rolls back, nil commits.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store scope.
type Tx interface {
	Sessions() Sessions
	Subscribers() Subscribers
}

type Sessions interface {
	// CreateSession inserts a new verification session (id is provided by
	// the app via ULID).
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession returns a session by id, swept or not; TTL enforcement
	// is the lifecycle manager's job.
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// ReplaceChallenge overwrites the stored carrier and OTP for a
	// re-issued challenge. Status and created_at are untouched.
	ReplaceChallenge(ctx context.Context, id, carrier, otp string) error

	// IncrementAttempts bumps the failed-confirm counter and returns the
	// new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// CompleteSession conditionally transitions a session to COMPLETED
	// and stamps its CI. The update only applies while created_at is at
	// or after notBefore, so a confirm racing the sweeper (or a stale
	// read of an already-expired record) surfaces as ErrNotFound instead
	// of resurrecting a deleted row.
	CompleteSession(ctx context.Context, id, ci string, notBefore time.Time) error

	// DeleteCreatedBefore removes every session older than cutoff,
	// regardless of status, and reports how many went. This is the
	// retention ceiling, not cache eviction.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Subscribers interface {
	// GetByPhone returns the carrier record for normalized phone digits.
	GetByPhone(ctx context.Context, phoneDigits string) (domain.Subscriber, error)
}
