package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/trusteelab/vpass/internal/verify/domain"
	"github.com/trusteelab/vpass/internal/verify/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_sessions
			(id, auth_request_id, encrypted_name, encrypted_phone, carrier, otp, ci, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		mapStringNull(s.AuthRequestID),
		s.EncryptedName,
		s.EncryptedPhone,
		s.Carrier,
		s.OTP,
		mapStringNull(s.CI),
		string(s.Status),
		s.Attempts,
		s.CreatedAt.UTC(),
	)
	return err
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, auth_request_id, encrypted_name, encrypted_phone, carrier, otp, ci, status, attempts, created_at
		FROM verification_sessions
		WHERE id = ?`, id)

	var (
		s             domain.Session
		authRequestID sql.NullString
		ci            sql.NullString
		status        string
	)
	err := row.Scan(
		&s.ID,
		&authRequestID,
		&s.EncryptedName,
		&s.EncryptedPhone,
		&s.Carrier,
		&s.OTP,
		&ci,
		&status,
		&s.Attempts,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.AuthRequestID = mapNullString(authRequestID)
	s.CI = mapNullString(ci)
	s.Status = domain.Status(status)
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func (r *sessionsRepo) ReplaceChallenge(ctx context.Context, id, carrier, otp string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_sessions
		SET carrier = ?, otp = ?
		WHERE id = ?`, carrier, otp, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE verification_sessions
		SET attempts = attempts + 1
		WHERE id = ?
		RETURNING attempts`, id)

	var attempts int
	if err := row.Scan(&attempts); err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

// CompleteSession is the conditional COMPLETED transition. The created_at
// guard makes the sweep/confirm race resolve to not-found rather than
// writing into (or past) a deletion.
func (r *sessionsRepo) CompleteSession(ctx context.Context, id, ci string, notBefore time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_sessions
		SET ci = ?, status = ?
		WHERE id = ? AND created_at >= ?`,
		ci, string(domain.StatusCompleted), id, notBefore.UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM verification_sessions
		WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
