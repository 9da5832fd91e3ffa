package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for service credential hashing. These follow the
// RFC 9106 low-memory recommendation; service credentials are long random
// strings, not human passwords, so the work factor mainly guards against
// a leaked hash being confirmed offline.
const (
	credSaltLength  = 16
	credKeyLength   = 32
	credIterations  = 3
	credMemory      = 64 * 1024
	credParallelism = 2
)

// ErrCredentialMismatch is returned when a presented credential does not
// match the stored hash.
var ErrCredentialMismatch = errors.New("cryptox: credential does not match")

// HashCredential produces a PHC-format Argon2id hash of a shared service
// credential (e.g. the S2S verify token).
func HashCredential(credential string) (string, error) {
	salt := make([]byte, credSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(credential), salt, credIterations, credMemory, credParallelism, credKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		credMemory,
		credIterations,
		credParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyCredential compares a presented credential against a PHC-format
// Argon2id hash in constant time.
func VerifyCredential(credential, encodedHash string) error {
	parts := splitPHC(encodedHash)

	// Expected structure: ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return errors.New("cryptox: invalid credential hash format")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("cryptox: invalid credential hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("cryptox: invalid credential hash salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("cryptox: invalid credential hash digest: %w", err)
	}

	computed := argon2.IDKey([]byte(credential), salt, iters, mem, par, uint32(len(expected)))

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrCredentialMismatch
}

func splitPHC(s string) []string {
	parts := make([]string, 0, 6)
	start := 0
	for i := range len(s) {
		if s[i] == '$' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
