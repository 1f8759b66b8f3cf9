package wallet

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"verox/go-wallet/internal/securestore"
)

var (
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
	ErrMnemonicRequired = errors.New("mnemonic is required")
)

// The 32-byte secret is used directly as bip39 entropy, so the 24-word
// phrase is a lossless backup of the key rather than an HD seed.
func keyToMnemonic(key *ecdsa.PrivateKey) (string, error) {
	raw := crypto.FromECDSA(key)
	defer securestore.Zero(raw)
	return bip39.NewMnemonic(raw)
}

func keyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	mnemonic = normalizeMnemonic(mnemonic)
	if mnemonic == "" {
		return nil, ErrMnemonicRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	defer securestore.Zero(entropy)
	if len(entropy) != 32 {
		return nil, ErrInvalidMnemonic
	}
	key, err := crypto.ToECDSA(entropy)
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	return key, nil
}

func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}
