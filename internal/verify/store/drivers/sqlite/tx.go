package sqlite

import (
	"database/sql"

	"github.com/trusteelab/vpass/internal/verify/store"
)

// txStore scopes the repositories to a single transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{db: t.tx} }
func (t *txStore) Subscribers() store.Subscribers { return &subscribersRepo{db: t.tx} }
