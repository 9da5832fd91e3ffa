// Package normx canonicalizes the identity fields that get compared across
// party boundaries. Every comparison site (ledger lookup, re-challenge,
// final confirmation) must go through these helpers so that a name typed on
// one platform equals the same name stored from another.
package normx

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name trims surrounding whitespace and applies Unicode NFC composition.
// Korean names in particular arrive in both composed and decomposed forms
// depending on the client OS.
func Name(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NameEqual reports whether two names are equal after canonicalization.
func NameEqual(a, b string) bool {
	return Name(a) == Name(b)
}

// PhoneDigits strips every non-digit rune from a phone number, so
// "010-9511-9924" and "01095119924" compare equal.
func PhoneDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
