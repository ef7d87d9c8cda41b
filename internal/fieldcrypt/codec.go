package fieldcrypt

import "fmt"

// SealedField is the stored representation of one sensitive value.
// Hash is nil unless the field was sealed for equality search.
type SealedField struct {
	Ciphertext []byte
	Nonce      []byte
	Hash       []byte
}

// Codec binds one encryption key and one blind-index secret. It is an
// explicit dependency passed into every component that touches sensitive
// fields; nothing in this package holds global state, so keys can be swapped
// per environment (and eventually rotated) without touching call sites.
type Codec struct {
	key    []byte
	secret []byte
}

// NewCodec validates the key/secret pair. A wrong-length key or an empty
// secret is a configuration error: callers treat it as fatal at startup,
// never as a per-request condition.
func NewCodec(key, secret []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("fieldcrypt: encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("fieldcrypt: blind index secret must not be empty")
	}
	return &Codec{key: key, secret: secret}, nil
}

// Seal encrypts a sensitive, non-searchable value. Every call draws a fresh
// nonce, so re-encrypting an unchanged value on update is fine.
func (c *Codec) Seal(plaintext string) (SealedField, error) {
	ciphertext, nonce, err := Encrypt(c.key, plaintext)
	if err != nil {
		return SealedField{}, err
	}
	return SealedField{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// SealIndexed encrypts a searchable value and attaches its blind index.
func (c *Codec) SealIndexed(plaintext string) (SealedField, error) {
	f, err := c.Seal(plaintext)
	if err != nil {
		return SealedField{}, err
	}
	f.Hash = BlindIndex(c.secret, plaintext)
	return f, nil
}

// Open decrypts a stored field, degrading to "" when authentication fails.
func (c *Codec) Open(ciphertext, nonce []byte) string {
	plaintext, _ := Decrypt(c.key, ciphertext, nonce)
	return plaintext
}

// Index computes the blind index of a plaintext for an equality predicate.
func (c *Codec) Index(value string) []byte {
	return BlindIndex(c.secret, value)
}
