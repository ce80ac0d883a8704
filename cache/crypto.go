package cache

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKeySize = errors.New("invalid encryption key size")

	// ErrDecryptionFailed marks a cache file that cannot be
	// authenticated: wrong key, truncation, or tampering
	ErrDecryptionFailed = errors.New("cache decryption failed")
)

// Cipher is the narrow encryption capability the cache depends on.
// Swapping the concrete cipher never touches admission or eviction logic
type Cipher interface {
	// Encrypt seals the given plaintext
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt opens the given ciphertext, failing on any
	// authentication mismatch
	Decrypt(ciphertext []byte) ([]byte, error)
}

// xchachaCipher is an XChaCha20-Poly1305 AEAD cipher with
// a random nonce prepended to each ciphertext
type xchachaCipher struct {
	aead cipher.AEAD
}

// NewCipher creates an authenticated cipher from the given 32-byte key
func NewCipher(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf(
			"%w: need %d bytes, got %d",
			ErrInvalidKeySize,
			chacha20poly1305.KeySize,
			len(key),
		)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("unable to construct AEAD: %w", err)
	}

	return &xchachaCipher{
		aead: aead,
	}, nil
}

func (c *xchachaCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())

	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("unable to generate nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// ParseKey decodes a hex-encoded 32-byte encryption key
func ParseKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: not valid hex", ErrInvalidKeySize)
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf(
			"%w: need %d bytes, got %d",
			ErrInvalidKeySize,
			chacha20poly1305.KeySize,
			len(key),
		)
	}

	return key, nil
}

func (c *xchachaCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	var (
		nonce  = ciphertext[:c.aead.NonceSize()]
		sealed = ciphertext[c.aead.NonceSize():]
	)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}
