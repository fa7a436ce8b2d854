package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

var vaultAAD = []byte("laraprov/sudo")

// SealedVault keeps the sudo password encrypted in process memory with a
// throwaway key, so a heap dump or a stray %v never shows the plaintext.
type SealedVault struct {
	mu     sync.Mutex
	aead   cipher.AEAD
	sealed []byte
}

// NewSealedVault generates a fresh 256-bit key that never leaves the process.
func NewSealedVault() (*SealedVault, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("crypto: key generation failure: %w", err)
	}
	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aead failure: %w", err)
	}
	return &SealedVault{aead: aead}, nil
}

// Store seals secret, replacing anything cached before.
func (v *SealedVault) Store(secret string) error {
	if secret == "" {
		return errors.New("crypto: refusing to cache an empty secret")
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("crypto: nonce generation failure: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.sealed = v.aead.Seal(nonce, nonce, []byte(secret), vaultAAD)
	return nil
}

// Reveal opens the cached secret.
func (v *SealedVault) Reveal() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.sealed) == 0 {
		return "", false
	}
	ns := v.aead.NonceSize()
	if len(v.sealed) < ns {
		return "", false
	}
	nonce, ct := v.sealed[:ns], v.sealed[ns:]
	plaintext, err := v.aead.Open(nil, nonce, ct, vaultAAD)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// Forget zeroes and drops the sealed secret.
func (v *SealedVault) Forget() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.sealed {
		v.sealed[i] = 0
	}
	v.sealed = nil
}
