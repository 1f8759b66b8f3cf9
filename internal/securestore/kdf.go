package securestore

import (
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	SaltSize  = 16
	NonceSize = chacha20poly1305.NonceSize
	KeySize   = chacha20poly1305.KeySize

	// HeaderSize is the fixed framing prefix of every blob: salt then nonce.
	HeaderSize = SaltSize + NonceSize
)

const (
	defaultArgonTime    = uint32(2)
	defaultArgonMemKB   = uint32(64 * 1024)
	defaultArgonThreads = uint8(1)
)

// KDFParams are the argon2id cost parameters. They are not persisted in the
// blob, so a keystore can only be opened with the parameters it was sealed with.
type KDFParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:     defaultArgonTime,
		MemoryKB: defaultArgonMemKB,
		Threads:  defaultArgonThreads,
	}
}

func (p KDFParams) Validate() error {
	if p.Time == 0 {
		return fmt.Errorf("%w: kdf time must be positive", ErrInvalidParams)
	}
	if p.Threads == 0 {
		return fmt.Errorf("%w: kdf threads must be positive", ErrInvalidParams)
	}
	// argon2 requires at least 8 KiB per lane.
	if p.MemoryKB < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: kdf memory %d KiB is below 8 KiB per thread", ErrInvalidParams, p.MemoryKB)
	}
	return nil
}

// DeriveKey stretches passphrase with salt into a KeySize-byte key.
// The caller owns the returned slice and should Zero it when done.
func DeriveKey(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidParams, SaltSize, len(salt))
	}
	key := argon2.IDKey(passphrase, salt, p.Time, p.MemoryKB, p.Threads, KeySize)
	if len(key) != KeySize {
		Zero(key)
		return nil, fmt.Errorf("%w: derived key has %d bytes", ErrInvalidParams, len(key))
	}
	return key, nil
}

// Zero overwrites b in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
