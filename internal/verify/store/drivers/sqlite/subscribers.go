package sqlite

import (
	"context"

	"github.com/trusteelab/vpass/internal/verify/domain"
)

type subscribersRepo struct {
	db dbtx
}

func (r *subscribersRepo) GetByPhone(ctx context.Context, phoneDigits string) (domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT phone_digits, name, carrier
		FROM carrier_subscribers
		WHERE phone_digits = ?`, phoneDigits)

	var sub domain.Subscriber
	if err := row.Scan(&sub.PhoneDigits, &sub.Name, &sub.Carrier); err != nil {
		return domain.Subscriber{}, mapNotFound(err)
	}
	return sub, nil
}
