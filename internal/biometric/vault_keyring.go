package biometric

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringVault stores the secret in the OS credential store: Keychain on
// macOS, Credential Manager on Windows, Secret Service on Linux.
type KeyringVault struct {
	service string
	account string
}

func NewKeyringVault(service, account string) *KeyringVault {
	return &KeyringVault{service: service, account: account}
}

func (v *KeyringVault) Store(secret string) error {
	if err := keyring.Set(v.service, v.account, secret); err != nil {
		return fmt.Errorf("%w: keyring set: %v", ErrVaultIO, err)
	}
	return nil
}

func (v *KeyringVault) Retrieve() (string, error) {
	secret, err := keyring.Get(v.service, v.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotRegistered
	}
	if err != nil {
		return "", fmt.Errorf("%w: keyring get: %v", ErrVaultIO, err)
	}
	return secret, nil
}

func (v *KeyringVault) Delete() error {
	err := keyring.Delete(v.service, v.account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: keyring delete: %v", ErrVaultIO, err)
}
