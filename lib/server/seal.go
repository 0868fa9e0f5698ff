package server

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealInfo domain-separates the derived key from other uses of the secret.
const sealInfo = "taskbridge version payload v1"

// ErrBadSecret is returned by Open when a payload cannot be authenticated,
// which almost always means a wrong encryption secret.
var ErrBadSecret = errors.New("server: payload authentication failed")

// Sealer encrypts version payloads with a key derived from the
// user-configured encryption secret. Payloads are sealed with
// XChaCha20-Poly1305 under a random nonce prepended to the ciphertext.
type Sealer struct {
	key []byte
}

// NewSealer derives the payload key from the encryption secret.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("server: empty encryption secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving payload key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts a payload.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a payload produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrBadSecret
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrBadSecret
	}
	return plaintext, nil
}
