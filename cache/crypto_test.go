package cache

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)

	for i := range key {
		key[i] = b
	}

	return key
}

func TestCipher_New(t *testing.T) {
	t.Parallel()

	t.Run("valid key", func(t *testing.T) {
		t.Parallel()

		c, err := NewCipher(testKey(1))

		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("short key", func(t *testing.T) {
		t.Parallel()

		_, err := NewCipher([]byte("too-short"))

		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestCipher_ParseKey(t *testing.T) {
	t.Parallel()

	t.Run("valid key", func(t *testing.T) {
		t.Parallel()

		key, err := ParseKey(hex.EncodeToString(testKey(1)))

		require.NoError(t, err)
		assert.Equal(t, testKey(1), key)
	})

	t.Run("not hex", func(t *testing.T) {
		t.Parallel()

		_, err := ParseKey("zz")

		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Parallel()

		_, err := ParseKey(hex.EncodeToString([]byte("short")))

		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey(1))
	require.NoError(t, err)

	plaintext := []byte(`{"version":1,"pairs":{}}`)

	sealed, err := c.Encrypt(plaintext)
	require.NoError(t, err)

	// Ciphertext must not leak the plaintext
	assert.NotContains(t, string(sealed), "version")

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)

	assert.Equal(t, plaintext, opened)
}

func TestCipher_Decrypt(t *testing.T) {
	t.Parallel()

	t.Run("single flipped byte", func(t *testing.T) {
		t.Parallel()

		c, err := NewCipher(testKey(1))
		require.NoError(t, err)

		sealed, err := c.Encrypt([]byte("rates"))
		require.NoError(t, err)

		sealed[len(sealed)/2] ^= 0xff

		_, err = c.Decrypt(sealed)

		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		writer, err := NewCipher(testKey(1))
		require.NoError(t, err)

		reader, err := NewCipher(testKey(2))
		require.NoError(t, err)

		sealed, err := writer.Encrypt([]byte("rates"))
		require.NoError(t, err)

		_, err = reader.Decrypt(sealed)

		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		t.Parallel()

		c, err := NewCipher(testKey(1))
		require.NoError(t, err)

		_, err = c.Decrypt([]byte("short"))

		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})
}
