package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerService_Lookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("finds a seeded subscriber", func(t *testing.T) {
		sub, err := env.ledger.Lookup(ctx, seedPhone)
		require.NoError(t, err)
		require.Equal(t, seedName, sub.Name)
		require.Equal(t, seedCarrier, sub.Carrier)
	})

	t.Run("normalizes the number before matching", func(t *testing.T) {
		sub, err := env.ledger.Lookup(ctx, "010-9511-9924")
		require.NoError(t, err)
		require.Equal(t, seedName, sub.Name)
	})

	t.Run("unknown number", func(t *testing.T) {
		_, err := env.ledger.Lookup(ctx, "01012341234")
		require.ErrorIs(t, err, ErrSubscriberNotFound)
	})
}

func TestLedgerService_Matches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		phone   string
		subName string
		carrier string
		want    bool
	}{
		{"exact match", seedPhone, seedName, seedCarrier, true},
		{"formatted phone", "010 9511 9924", seedName, seedCarrier, true},
		{"padded name", seedPhone, "  " + seedName + "  ", seedCarrier, true},
		{"wrong name", seedPhone, otherName, seedCarrier, false},
		{"wrong carrier", seedPhone, seedName, otherCarrier, false},
		{"empty carrier", seedPhone, seedName, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.ledger.Matches(ctx, tc.phone, tc.subName, tc.carrier)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("unknown number is a mismatch, not an error", func(t *testing.T) {
		got, err := env.ledger.Matches(ctx, "01012341234", seedName, seedCarrier)
		require.NoError(t, err)
		require.False(t, got)
	})
}
