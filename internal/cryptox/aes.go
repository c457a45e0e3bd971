// Package cryptox implements the symmetric (AES-GCM) and asymmetric (RSA)
// primitives used for encryption at rest and inter-service packets.
//
// Every failure is classified as shared.ErrConfig, shared.ErrData or
// shared.ErrProcess so callers can map it without inspecting messages.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/vaultledger/vaultledger/internal/shared"
)

const (
	gcmIVSize  = 12
	gcmTagSize = 16
)

// DeriveKey decodes a base64 AES key and checks it is 128, 192 or 256 bits.
func DeriveKey(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, shared.Wrap(shared.ErrConfig, "cryptox: aes key is not valid base64", nil)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, shared.Wrap(shared.ErrConfig, "cryptox: aes key must be 16, 24 or 32 bytes", nil)
	}
}

// SymmetricCipher performs AES-GCM authenticated encryption of short strings.
// It is immutable and safe for concurrent use.
type SymmetricCipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewSymmetricCipher builds an AES-GCM cipher with a 96-bit IV and 128-bit tag.
func NewSymmetricCipher(key []byte) (*SymmetricCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, shared.Wrap(shared.ErrConfig, "cryptox: aes cipher", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return nil, shared.Wrap(shared.ErrConfig, "cryptox: gcm mode", err)
	}
	return &SymmetricCipher{aead: aead, random: rand.Reader}, nil
}

// Encrypt returns base64(iv || ciphertext || tag) using a fresh random IV.
func (c *SymmetricCipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", shared.Wrap(shared.ErrConfig, "cryptox: symmetric cipher not initialised", nil)
	}
	iv := make([]byte, gcmIVSize, gcmIVSize+len(plaintext)+gcmTagSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return "", shared.Wrap(shared.ErrProcess, "cryptox: generate iv", err)
	}
	sealed := c.aead.Seal(iv, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampering or a wrong key is reported as
// shared.ErrData; no partial plaintext is ever returned.
func (c *SymmetricCipher) Decrypt(blob string) (string, error) {
	if c == nil || c.aead == nil {
		return "", shared.Wrap(shared.ErrConfig, "cryptox: symmetric cipher not initialised", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", shared.Wrap(shared.ErrData, "cryptox: ciphertext is not valid base64", nil)
	}
	if len(raw) < gcmIVSize {
		return "", shared.Wrap(shared.ErrData, "cryptox: ciphertext too short", nil)
	}
	iv, sealed := raw[:gcmIVSize], raw[gcmIVSize:]
	if len(sealed) < gcmTagSize {
		return "", shared.Wrap(shared.ErrData, "cryptox: ciphertext too short", nil)
	}
	plain, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", shared.Wrap(shared.ErrData, "cryptox: authentication failed", nil)
	}
	return string(plain), nil
}

// EncryptPtr maps an absent plaintext to an absent ciphertext.
func (c *SymmetricCipher) EncryptPtr(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	out, err := c.Encrypt(*plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DecryptPtr maps an absent ciphertext to an absent plaintext.
func (c *SymmetricCipher) DecryptPtr(blob *string) (*string, error) {
	if blob == nil {
		return nil, nil
	}
	out, err := c.Decrypt(*blob)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
