// Package cryptox implements the message envelope cryptography: PBKDF2 key
// derivation from a user-supplied secret key and AES-256-GCM authenticated
// encryption of message bodies.
//
// The secret key itself is never persisted or logged anywhere; only the
// per-message salt allows re-deriving the encryption key at read time.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"unicode"

	"github.com/sigilosec/sigilo/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyLength is the derived AES key size in bytes (AES-256).
	KeyLength = 32
	// SaltLength is the per-message KDF salt size in bytes.
	SaltLength = 16
	// NonceLength is the AES-GCM nonce size in bytes.
	NonceLength = 12
	// TagLength is the GCM authentication tag size in bytes.
	TagLength = 16

	// kdfIterations is part of the envelope format; changing it makes
	// stored messages undecryptable.
	kdfIterations = 100_000

	// MinPassphraseLength is the strength-policy floor for secret keys.
	MinPassphraseLength = 8
)

// DeriveKey derives a 32-byte AES key from the secret key and a 16-byte salt
// using PBKDF2-HMAC-SHA256. The same (passphrase, salt) pair always yields the
// same key.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if len(salt) != SaltLength {
		return nil, fmt.Errorf("invalid salt length %d, want %d", len(salt), SaltLength)
	}
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, KeyLength, sha256.New), nil
}

// Encrypt seals plaintext with AES-256-GCM under the given key and nonce and
// returns the ciphertext and the 16-byte authentication tag separately. The
// two are only meaningful together; they are stored as distinct envelope
// fields and rejoined on decrypt.
//
// The nonce must be fresh for every call with the same key. Callers obtain it
// from GenerateNonce; nonce reuse under one key breaks confidentiality.
func Encrypt(key, nonce, plaintext []byte) (ciphertext, tag []byte, err error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return nil, nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	n := len(sealed) - TagLength
	return sealed[:n], sealed[n:], nil
}

// Decrypt opens ciphertext+tag with AES-256-GCM. A tag that does not verify
// against (key, nonce, ciphertext) yields common.ErrWrongKey; the error does
// not reveal whether the key was wrong or the data was tampered with.
func Decrypt(key, nonce, ciphertext, tag []byte) ([]byte, error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrWrongKey
	}
	return plaintext, nil
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeyLength)
	}
	if len(nonce) != NonceLength {
		return nil, fmt.Errorf("invalid nonce length %d, want %d", len(nonce), NonceLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateSalt returns a fresh random KDF salt.
func GenerateSalt() ([]byte, error) {
	return common.GenerateRandByteArray(SaltLength)
}

// GenerateNonce returns a fresh random GCM nonce.
func GenerateNonce() ([]byte, error) {
	return common.GenerateRandByteArray(NonceLength)
}

// ValidatePassphrase enforces the secret-key strength policy: at least 8
// characters, containing at least one letter and at least one digit.
// Violations are reported as common.ErrValidation.
func ValidatePassphrase(passphrase string) error {
	runes := []rune(passphrase)
	if len(runes) < MinPassphraseLength {
		return fmt.Errorf("%w: secret key must be at least %d characters", common.ErrValidation, MinPassphraseLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: secret key must contain letters and digits", common.ErrValidation)
	}
	return nil
}
