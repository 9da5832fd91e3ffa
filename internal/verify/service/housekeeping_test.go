package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trusteelab/vpass/internal/verify/store"
)

func TestHousekeepingService_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("removes sessions past the deadline regardless of status", func(t *testing.T) {
		env := newTestEnv(t)
		hk := NewHousekeepingService(env.store, slog.Default(), nil, time.Hour, DefaultSessionTTL)

		old := time.Now().Add(-DefaultSessionTTL - time.Minute)
		expiredPending := env.insertSession(t, seedName, seedPhone, seedCarrier, "111111", old)

		// A completed session that has aged out is swept all the same.
		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

		fresh := env.insertSession(t, seedName, seedPhone, seedCarrier, "222222", time.Now())

		hk.Sweep(ctx)

		_, err = env.store.Sessions().GetSession(ctx, expiredPending)
		require.ErrorIs(t, err, store.ErrNotFound)

		// The completed session is still inside its window.
		_, err = env.store.Sessions().GetSession(ctx, result.SessionID)
		require.NoError(t, err)

		_, err = env.store.Sessions().GetSession(ctx, fresh)
		require.NoError(t, err)
	})

	t.Run("sweeps a completed session once it ages out", func(t *testing.T) {
		env := newTestEnv(t)
		// Short TTL so completion is already past the deadline.
		hk := NewHousekeepingService(env.store, slog.Default(), nil, time.Hour, time.Nanosecond)
		env.sessions.TTL = time.Hour // keep the lifecycle itself permissive

		result, err := env.sessions.Initiate(ctx, InitiateClaim{
			Name: seedName, Phone: seedPhone, Carrier: seedCarrier,
		})
		require.NoError(t, err)
		require.NoError(t, env.sessions.Confirm(ctx, result.SessionID, result.OTP))

		time.Sleep(10 * time.Millisecond)
		hk.Sweep(ctx)

		_, err = env.store.Sessions().GetSession(ctx, result.SessionID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("empty table sweeps cleanly", func(t *testing.T) {
		env := newTestEnv(t)
		hk := NewHousekeepingService(env.store, slog.Default(), nil, time.Hour, DefaultSessionTTL)
		hk.Sweep(ctx)
	})
}

func TestHousekeepingService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	old := time.Now().Add(-DefaultSessionTTL - time.Minute)
	id := env.insertSession(t, seedName, seedPhone, seedCarrier, "111111", old)

	hk := NewHousekeepingService(env.store, slog.Default(), nil, time.Hour, DefaultSessionTTL)
	hk.Start()
	hk.Stop() // the startup sweep runs before Stop returns

	_, err := env.store.Sessions().GetSession(context.Background(), id)
	require.ErrorIs(t, err, store.ErrNotFound)
}
