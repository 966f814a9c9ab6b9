// Package secret provides authenticated encryption of small payloads and
// identifier generation.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"collectorkit/internal/domain"
)

const (
	envelopeVersion byte = 1
	saltSize             = 16

	kdfTime    = 2
	kdfMemory  = 19 * 1024
	kdfThreads = 1
)

// ErrEmptyKey is returned when Encrypt or Decrypt is called without a key.
var ErrEmptyKey = fmt.Errorf("empty encryption key: %w", domain.ErrValidationFailed)

// Encrypt seals data with XChaCha20-Poly1305 under a key derived from
// passphrase with argon2id. The result is base64 text carrying the version,
// salt, nonce and ciphertext.
func Encrypt(data []byte, passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyKey
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("encrypt: read salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encrypt: read nonce: %w", err)
	}

	header := append([]byte{envelopeVersion}, salt...)
	sealed := aead.Seal(nonce, nonce, data, header)
	return base64.StdEncoding.EncodeToString(append(header, sealed...)), nil
}

// Decrypt opens a value produced by Encrypt. Malformed or tampered input and
// a wrong passphrase fail with domain.ErrParseError.
func Decrypt(encoded, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.Wrap("decrypt: decode", domain.ErrParseError, err)
	}
	headerSize := 1 + saltSize
	if len(raw) < headerSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, domain.Wrap("decrypt", domain.ErrParseError, errors.New("envelope too short"))
	}
	if raw[0] != envelopeVersion {
		return nil, domain.Wrap("decrypt", domain.ErrParseError, fmt.Errorf("unknown envelope version %d", raw[0]))
	}
	header, rest := raw[:headerSize], raw[headerSize:]
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, header[1:]))
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, domain.Wrap("decrypt", domain.ErrParseError, err)
	}
	return plain, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}
