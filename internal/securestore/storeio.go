package securestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxSealedFileBytes bounds what ReadSealedFile accepts; keystores are tiny.
const MaxSealedFileBytes = 1 << 20

// ReadSealedFile reads an encoded blob from disk without interpreting it.
func ReadSealedFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxSealedFileBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSealedFileBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrCorruptKeystore, filepath.Base(path), MaxSealedFileBytes)
	}
	return data, nil
}

// WriteFileAtomic creates the parent directory (0700) and replaces path with
// content through a hidden temp file and rename, leaving mode 0600.
func WriteFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
