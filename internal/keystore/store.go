// Package keystore manages where sealed wallet blobs live on disk. It knows
// file names and existence only; blob contents belong to securestore.
package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"verox/go-wallet/internal/securestore"
)

const (
	DefaultDir       = "keystore"
	DefaultExtension = ".dat"
)

var (
	ErrNotFound       = errors.New("keystore not found")
	ErrStorageIO      = errors.New("keystore storage failure")
	ErrInvalidAddress = errors.New("keystore address is invalid")
)

// Record pairs a wallet address with the file that holds its sealed blob.
type Record struct {
	Address string `json:"address" yaml:"address"`
	Path    string `json:"path" yaml:"path"`
}

type Store struct {
	dir string
	ext string
}

func New(dir, ext string) *Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultDir
	}
	ext = strings.TrimSpace(ext)
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Store{dir: dir, ext: ext}
}

func (s *Store) Dir() string { return s.dir }

// Path returns the file a wallet with address is stored under.
func (s *Store) Path(address string) (string, error) {
	address = strings.TrimSpace(address)
	if err := validateAddress(address); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, address+s.ext), nil
}

// Write stores blob for address, replacing any previous file for it.
func (s *Store) Write(address string, blob []byte) (string, error) {
	path, err := s.Path(address)
	if err != nil {
		return "", err
	}
	if err := securestore.WriteFileAtomic(path, blob); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrStorageIO, filepath.Base(path), err)
	}
	return path, nil
}

// WriteAt replaces the keystore file at path, which must be a keystore file
// name directly inside the store directory.
func (s *Store) WriteAt(path string, blob []byte) error {
	name := filepath.Base(path)
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(s.dir) || !s.isKeystoreName(name) {
		return fmt.Errorf("%w: %s is not a keystore file in %s", ErrInvalidAddress, path, s.dir)
	}
	if err := securestore.WriteFileAtomic(path, blob); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorageIO, name, err)
	}
	return nil
}

// Find returns the keystore file for address. Addresses and the extension
// match case-insensitively, as in List.
func (s *Store) Find(address string) (string, error) {
	path, err := s.Path(address)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return path, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: stat %s: %v", ErrStorageIO, filepath.Base(path), err)
	}

	records, err := s.List()
	if err != nil {
		return "", err
	}
	want := strings.TrimSpace(address)
	for _, r := range records {
		if strings.EqualFold(r.Address, want) {
			return r.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, address)
}

// FindFirst returns the first keystore file in name order.
func (s *Store) FindFirst() (string, error) {
	records, err := s.List()
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: no %s files in %s", ErrNotFound, s.ext, s.dir)
	}
	return records[0].Path, nil
}

// List returns every keystore file in name order. A missing directory is an
// empty list.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorageIO, s.dir, err)
	}
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !s.isKeystoreName(name) {
			continue
		}
		records = append(records, Record{
			Address: strings.TrimSuffix(name, filepath.Ext(name)),
			Path:    filepath.Join(s.dir, name),
		})
	}
	return records, nil
}

func (s *Store) isKeystoreName(name string) bool {
	if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), s.ext) {
		return false
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) != ""
}

func validateAddress(address string) error {
	if address == "" || address == "." || address == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if strings.ContainsAny(address, `/\:`) || filepath.Base(address) != address {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if strings.HasPrefix(address, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}
