package securestore

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealWithKey encrypts and authenticates plaintext. The returned slice holds
// the ciphertext followed by the 16-byte Poly1305 tag.
func SealWithKey(key, nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrInvalidParams, NonceSize, len(nonce))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// OpenWithKey reverses SealWithKey. Any mismatch between key, nonce and
// ciphertext yields ErrAuthFailed and nothing else, so a wrong key and a
// tampered blob cannot be told apart.
func OpenWithKey(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrAuthFailed
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
