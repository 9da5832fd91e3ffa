package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPDigits is the width of verification codes sent to subscribers.
const OTPDigits = 6

// GenerateOTP returns a zero-padded numeric one-time code of the given
// width, drawn from crypto/rand. The code is stored server-side and
// compared by exact string match; it is not a TOTP/HOTP derivation.
func GenerateOTP(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("cryptox: otp width must be 1..18, got %d", digits)
	}

	bound := big.NewInt(1)
	for range digits {
		bound.Mul(bound, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate otp: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
