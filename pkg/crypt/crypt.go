// Package crypt seals values with AES-256-GCM before they leave the process.
//
// Sealed output is base64url(nonce || ciphertext || tag), so one string can
// be stored in a cache entry or a cookie.
//
// Usage:
//
//	s, err := crypt.NewSealer(config.AppKey())
//	enc, err := s.SealJSON(terminal)
//	err = s.OpenJSON(enc, &terminal)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt is returned when decryption or authentication fails.
var ErrDecrypt = errors.New("crypt: decryption failed")

// ErrNoKey is returned by NewSealer for an empty secret.
var ErrNoKey = errors.New("crypt: APP_KEY not configured")

// Sealer encrypts and authenticates values under one key.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives a 32-byte key from secret via SHA-256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrNoKey
	}
	k := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: new GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal encrypts data and returns a base64url string.
func (s *Sealer) Seal(data []byte) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}
	// Seal appends ciphertext+tag after nonce.
	return base64.URLEncoding.EncodeToString(s.gcm.Seal(nonce, nonce, data, nil)), nil
}

// Open reverses Seal. Any tampering yields ErrDecrypt.
func (s *Sealer) Open(encoded string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecrypt
	}
	n := s.gcm.NonceSize()
	if len(data) < n {
		return nil, ErrDecrypt
	}
	plain, err := s.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// SealJSON marshals v to JSON then seals it.
func (s *Sealer) SealJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("crypt: marshal: %w", err)
	}
	return s.Seal(raw)
}

// OpenJSON opens encoded and unmarshals the result into dest.
func (s *Sealer) OpenJSON(encoded string, dest interface{}) error {
	raw, err := s.Open(encoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("crypt: unmarshal: %w", err)
	}
	return nil
}
