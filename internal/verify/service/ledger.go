package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/trusteelab/vpass/internal/verify/domain"
	"github.com/trusteelab/vpass/internal/verify/store"
	"github.com/trusteelab/vpass/pkg/normx"
)

// ErrSubscriberNotFound is returned when no carrier record exists for a
// phone number.
var ErrSubscriberNotFound = errors.New("subscriber_not_found")

// LedgerService answers "does this name/phone/carrier triple match the
// carrier of record". The reference set is read-only; all comparisons go
// through normx so composed and decomposed name forms compare equal.
type LedgerService struct {
	Store store.Store
}

// Lookup returns the subscriber of record for a phone number.
func (s *LedgerService) Lookup(ctx context.Context, phone string) (domain.Subscriber, error) {
	sub, err := s.Store.Subscribers().GetByPhone(ctx, normx.PhoneDigits(phone))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Subscriber{}, ErrSubscriberNotFound
		}
		return domain.Subscriber{}, fmt.Errorf("ledger lookup: %w", err)
	}
	return sub, nil
}

// Matches reports whether a record exists for phone and both the name and
// the carrier match it exactly.
func (s *LedgerService) Matches(ctx context.Context, phone, name, carrier string) (bool, error) {
	sub, err := s.Lookup(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			return false, nil
		}
		return false, err
	}

	return normx.NameEqual(sub.Name, name) && carrier != "" && sub.Carrier == carrier, nil
}
