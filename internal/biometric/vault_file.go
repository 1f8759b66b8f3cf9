package biometric

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"verox/go-wallet/internal/securestore"
)

// FileVault keeps the secret in a 0600 file for hosts without a credential
// service.
type FileVault struct {
	path string
}

func NewFileVault(path string) *FileVault {
	return &FileVault{path: path}
}

func (v *FileVault) Path() string {
	return v.path
}

func (v *FileVault) Store(secret string) error {
	if err := securestore.WriteFileAtomic(v.path, []byte(secret)); err != nil {
		return fmt.Errorf("%w: write vault file: %v", ErrVaultIO, err)
	}
	return nil
}

func (v *FileVault) Retrieve() (string, error) {
	data, err := securestore.ReadSealedFile(v.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotRegistered
	}
	if err != nil {
		return "", fmt.Errorf("%w: read vault file: %v", ErrVaultIO, err)
	}
	return string(data), nil
}

func (v *FileVault) Delete() error {
	err := os.Remove(v.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: remove vault file: %v", ErrVaultIO, err)
}
