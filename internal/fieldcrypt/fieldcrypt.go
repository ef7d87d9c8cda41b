// Package fieldcrypt implements confidential-field storage: authenticated
// encryption of individual PII values plus a deterministic blind index that
// supports equality lookups without decrypting anything at query time.
//
// Each sensitive field is persisted as (ciphertext, nonce), and searchable
// fields additionally carry an HMAC-SHA256 digest of the plaintext. The
// digest leaks nothing beyond exact-match membership, but low-entropy inputs
// (phone numbers in particular) remain subject to offline dictionary attack
// by anyone holding the index secret. Treat digests as sensitive: never log
// them or return them across the API boundary.
package fieldcrypt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required encryption key length in bytes.
const KeySize = chacha20poly1305.KeySize

// NonceSize is the length of the random nonce stored next to each ciphertext.
const NonceSize = chacha20poly1305.NonceSize

// Encrypt seals plaintext under key with a fresh random nonce.
// The nonce must be stored alongside the ciphertext; it is required for
// decryption and must never be reused for another value under the same key.
func Encrypt(key []byte, plaintext string) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, nil, fmt.Errorf("fieldcrypt: new cipher: %w", err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("fieldcrypt: generate nonce: %w", err)
	}

	ciphertext = aead.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt opens a (ciphertext, nonce) pair produced by Encrypt.
// Authentication failure (tampered data, wrong key, placeholder bytes from a
// column that was never populated) reports ok=false and an empty string.
// Callers must render that as an empty field, not treat it as a fault.
func Decrypt(key, ciphertext, nonce []byte) (plaintext string, ok bool) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", false
	}
	if len(nonce) != NonceSize {
		return "", false
	}

	out, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// BlindIndex computes the deterministic keyed digest of value used for
// equality search (WHERE <field>_hash = $1). The secret is independent of the
// encryption key; the same secret and value always produce the same digest.
func BlindIndex(secret []byte, value string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(value))
	return mac.Sum(nil)
}
