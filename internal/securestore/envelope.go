package securestore

import (
	"crypto/rand"
	"errors"
	"io"
)

var (
	ErrAuthFailed      = errors.New("securestore authentication failed")
	ErrCorruptKeystore = errors.New("securestore blob is corrupt")
	ErrInvalidParams   = errors.New("securestore parameters are invalid")
)

// Cipher seals payloads under a passphrase: a fresh salt and nonce are drawn
// for every Encrypt, the key is re-derived for every Decrypt.
type Cipher struct {
	params KDFParams
	random io.Reader
}

func NewCipher(params KDFParams) (*Cipher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Cipher{params: params, random: rand.Reader}, nil
}

func (c *Cipher) Encrypt(passphrase, plaintext []byte) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return nil, err
	}
	key, err := DeriveKey(passphrase, salt, c.params)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	ciphertext, err := SealWithKey(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}
	return EncodeBlob(salt, nonce, ciphertext), nil
}

func (c *Cipher) Decrypt(passphrase, blob []byte) ([]byte, error) {
	salt, nonce, ciphertext, err := DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(passphrase, salt, c.params)
	if err != nil {
		return nil, err
	}
	defer Zero(key)
	return OpenWithKey(key, nonce, ciphertext)
}
