package domain

// Subscriber is one row of the carrier-of-record reference set: the
// authoritative mapping from a phone number to its legal holder. The set is
// read-only at runtime; it is seeded by migration.
type Subscriber struct {
	// PhoneDigits is the normalized, digits-only phone number and the
	// lookup key.
	PhoneDigits string

	// Name is the legal name of record, stored NFC-composed.
	Name string

	// Carrier is the carrier code of record.
	Carrier string
}
