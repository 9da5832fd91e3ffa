package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrDecrypt is returned for any decryption failure: truncated input, bad
// base64, or an authentication tag mismatch. Callers must not expose the
// underlying cause to clients.
var ErrDecrypt = errors.New("cryptox: decryption failed")

// Cipher is an AES-256-GCM cipher for PII fields held at rest. Every
// Encrypt call uses a fresh random nonce; the wire format is
// base64(nonce || ciphertext || tag).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from arbitrary key material. The material is
// stretched to a 32-byte AES-256 key with SHA-256, so passphrases and raw
// keys both work.
func NewCipher(keyMaterial []byte) (*Cipher, error) {
	if len(keyMaterial) == 0 {
		return nil, errors.New("cryptox: empty key material")
	}

	key := sha256.Sum256(keyMaterial)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// LoadCipherKey resolves key material for the PII cipher in order of
// preference: a key file, then the given environment variable. If neither
// is set it generates an ephemeral in-process key and reports that via the
// second return value so callers can warn: ciphertext produced under an
// ephemeral key is unreadable after a restart.
func LoadCipherKey(path, envVar string) (material []byte, ephemeral bool, err error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("cryptox: read key file: %w", err)
		}
		return data, false, nil
	}

	if envKey := os.Getenv(envVar); envKey != "" {
		return []byte(envKey), false, nil
	}

	material = make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, false, fmt.Errorf("cryptox: generate ephemeral key: %w", err)
	}
	return material, true, nil
}

// EncryptString seals a UTF-8 plaintext and returns base64 of
// nonce || ciphertext || tag.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString. Any malformed or tampered input
// yields ErrDecrypt.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrDecrypt
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}
