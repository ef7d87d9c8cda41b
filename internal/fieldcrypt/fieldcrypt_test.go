package fieldcrypt_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldbook-crm/fieldbook/internal/fieldcrypt"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, fieldcrypt.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	plaintexts := []string{
		"eva@x.com",
		"+36201234567",
		"Budapest, Fő utca 1.",
		"", // empty values are encrypted too, to satisfy NOT NULL columns
		"árvíztűrő tükörfúrógép",
	}
	for _, p := range plaintexts {
		ciphertext, nonce, err := fieldcrypt.Encrypt(key, p)
		require.NoError(t, err)
		assert.Len(t, nonce, fieldcrypt.NonceSize)
		// Poly1305 tag adds a fixed 16-byte overhead.
		assert.Len(t, ciphertext, len(p)+16)

		got, ok := fieldcrypt.Decrypt(key, ciphertext, nonce)
		require.True(t, ok, "decrypt should succeed for %q", p)
		assert.Equal(t, p, got)
	}
}

func TestEncryptFreshNoncePerCall(t *testing.T) {
	key := testKey(t)

	c1, n1, err := fieldcrypt.Encrypt(key, "same value")
	require.NoError(t, err)
	c2, n2, err := fieldcrypt.Encrypt(key, "same value")
	require.NoError(t, err)

	assert.False(t, bytes.Equal(n1, n2), "nonces must be unique per call")
	assert.False(t, bytes.Equal(c1, c2), "ciphertexts must differ under fresh nonces")
}

func TestDecryptTamperDetection(t *testing.T) {
	key := testKey(t)

	ciphertext, nonce, err := fieldcrypt.Encrypt(key, "tamper-target")
	require.NoError(t, err)

	// Flipping any single bit of the ciphertext must fail authentication.
	for i := range ciphertext {
		mutated := bytes.Clone(ciphertext)
		mutated[i] ^= 0x01
		got, ok := fieldcrypt.Decrypt(key, mutated, nonce)
		assert.False(t, ok, "bit flip at ciphertext byte %d must be detected", i)
		assert.Empty(t, got)
	}

	// Same for the nonce.
	for i := range nonce {
		mutated := bytes.Clone(nonce)
		mutated[i] ^= 0x01
		_, ok := fieldcrypt.Decrypt(key, ciphertext, mutated)
		assert.False(t, ok, "bit flip at nonce byte %d must be detected", i)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	ciphertext, nonce, err := fieldcrypt.Encrypt(testKey(t), "secret")
	require.NoError(t, err)

	got, ok := fieldcrypt.Decrypt(testKey(t), ciphertext, nonce)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestDecryptGarbageInput(t *testing.T) {
	// Placeholder bytes from a never-populated column decrypt to empty, not error.
	_, ok := fieldcrypt.Decrypt(testKey(t), []byte{}, []byte{})
	assert.False(t, ok)

	_, ok = fieldcrypt.Decrypt(testKey(t), []byte("not a ciphertext"), make([]byte, fieldcrypt.NonceSize))
	assert.False(t, ok)
}

func TestEncryptBadKeyLength(t *testing.T) {
	_, _, err := fieldcrypt.Encrypt(make([]byte, 16), "value")
	require.Error(t, err)
}

func TestBlindIndexDeterminism(t *testing.T) {
	secret := []byte("index-secret")

	d1 := fieldcrypt.BlindIndex(secret, "eva@x.com")
	d2 := fieldcrypt.BlindIndex(secret, "eva@x.com")
	assert.Equal(t, d1, d2, "same secret and value must yield the same digest")
	assert.Len(t, d1, 32)

	d3 := fieldcrypt.BlindIndex(secret, "other@x.com")
	assert.NotEqual(t, d1, d3, "different values must yield different digests")

	d4 := fieldcrypt.BlindIndex([]byte("another-secret"), "eva@x.com")
	assert.NotEqual(t, d1, d4, "different secrets must yield unrelated digests")
}

func TestCodecSealOpen(t *testing.T) {
	codec, err := fieldcrypt.NewCodec(testKey(t), []byte("index-secret"))
	require.NoError(t, err)

	sealed, err := codec.Seal("Budapest")
	require.NoError(t, err)
	assert.Nil(t, sealed.Hash, "non-searchable fields carry no blind index")
	assert.Equal(t, "Budapest", codec.Open(sealed.Ciphertext, sealed.Nonce))

	indexed, err := codec.SealIndexed("+36201234567")
	require.NoError(t, err)
	require.NotNil(t, indexed.Hash)
	assert.Equal(t, codec.Index("+36201234567"), indexed.Hash)
	assert.Equal(t, "+36201234567", codec.Open(indexed.Ciphertext, indexed.Nonce))
}

func TestNewCodecValidation(t *testing.T) {
	_, err := fieldcrypt.NewCodec(make([]byte, 16), []byte("secret"))
	require.Error(t, err, "short key is a configuration error")

	_, err = fieldcrypt.NewCodec(make([]byte, fieldcrypt.KeySize), nil)
	require.Error(t, err, "empty secret is a configuration error")
}
