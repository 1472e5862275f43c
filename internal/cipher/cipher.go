// Package cipher seals provider tokens as Fernet tokens, the format the
// integrations backend decrypts with the shared key.
package cipher

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"

	"github.com/dtroode/composite-gateway/internal/model"
)

var _ model.TokenCipher = (*TokenCipher)(nil)

// ErrCiphertext is returned when a value cannot be decrypted.
var ErrCiphertext = errors.New("invalid ciphertext")

// TokenCipher encrypts provider tokens with a Fernet key.
type TokenCipher struct {
	key *fernet.Key
}

// New creates a cipher from 32 raw key bytes.
func New(key []byte) (*TokenCipher, error) {
	var k fernet.Key
	if len(key) != len(k) {
		return nil, fmt.Errorf("key must be %d bytes, got %d", len(k), len(key))
	}
	copy(k[:], key)
	return &TokenCipher{key: &k}, nil
}

// NewFromBase64 creates a cipher from a Fernet key in url-safe or standard base64.
func NewFromBase64(encoded string) (*TokenCipher, error) {
	k, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	return &TokenCipher{key: k}, nil
}

// Generate creates a cipher with a random key.
func Generate() (*TokenCipher, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &TokenCipher{key: &k}, nil
}

// Encrypt returns plaintext as a Fernet token.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt opens a Fernet token regardless of its age.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	plain := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, []*fernet.Key{c.key})
	if plain == nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
