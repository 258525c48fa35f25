package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Cipher encrypts persisted envelopes at rest with AES-256-GCM. The key is
// derived from the configured session secret via HKDF, so operators supply
// one secret of any length rather than a raw 32-byte key.
type Cipher struct {
	aead cipher.AEAD
}

// hkdfInfo binds derived keys to this use so the same secret can safely
// feed other derivations (e.g. cookie signing).
const hkdfInfo = "ccapd session envelope v1"

// NewCipher derives an AES-256 key from secret and returns a Cipher.
// Returns nil if secret is empty (encryption disabled).
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, nil
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving envelope key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns the ciphertext with prepended nonce.
// If Cipher is nil, returns plaintext unchanged.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	if c == nil {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext (with prepended nonce) and returns the
// plaintext. If Cipher is nil, returns ciphertext unchanged.
func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	if c == nil {
		return ciphertext, nil
	}

	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	return plaintext, nil
}
