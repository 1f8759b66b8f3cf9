// Package wallet implements the keystore flows: create, unlock, re-seal and
// back up a wallet whose secret key is sealed under a passphrase.
package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"verox/go-wallet/internal/keystore"
	"verox/go-wallet/internal/metrics"
	"verox/go-wallet/internal/platform/logging"
	"verox/go-wallet/internal/securestore"
)

var (
	ErrInvalidPassphrase  = errors.New("invalid passphrase")
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrLocked             = errors.New("unlock attempts are temporarily locked")
)

const componentName = "wallet"

type Options struct {
	Store      *keystore.Store
	Cipher     *securestore.Cipher
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	MaxBackoff time.Duration
	Now        func() time.Time
}

type Service struct {
	store      *keystore.Store
	cipher     *securestore.Cipher
	logger     *slog.Logger
	metrics    *metrics.Recorder
	maxBackoff time.Duration
	now        func() time.Time

	mu       sync.Mutex
	attempts map[string]*attemptState
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("wallet: keystore store is required")
	}
	if opts.Cipher == nil {
		return nil, errors.New("wallet: cipher is required")
	}
	s := &Service{
		store:      opts.Store,
		cipher:     opts.Cipher,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		maxBackoff: opts.MaxBackoff,
		now:        opts.Now,
		attempts:   make(map[string]*attemptState),
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Create generates a fresh secp256k1 key and seals it under passphrase.
// The passphrase slice is zeroed before Create returns.
func (s *Service) Create(passphrase []byte) (*Wallet, error) {
	defer securestore.Zero(passphrase)
	if isBlank(passphrase) {
		s.metrics.WalletOp("create", "rejected")
		return nil, ErrPassphraseRequired
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		s.metrics.WalletOp("create", "error")
		return nil, fmt.Errorf("generate key: %w", err)
	}
	w, err := s.seal("create", key, s.now(), passphrase, "")
	if err != nil {
		return nil, err
	}
	s.logInfo("create", "wallet created", "address", w.Address)
	return w, nil
}

// Import restores a wallet from its mnemonic backup and seals it under
// passphrase, replacing any keystore already present for that address.
func (s *Service) Import(mnemonic string, passphrase []byte) (*Wallet, error) {
	defer securestore.Zero(passphrase)
	if isBlank(passphrase) {
		s.metrics.WalletOp("import", "rejected")
		return nil, ErrPassphraseRequired
	}
	key, err := keyFromMnemonic(mnemonic)
	if err != nil {
		s.metrics.WalletOp("import", "rejected")
		return nil, err
	}
	w, err := s.seal("import", key, s.now(), passphrase, "")
	if err != nil {
		return nil, err
	}
	s.logInfo("import", "wallet imported", "address", w.Address)
	return w, nil
}

// Unlock opens the first keystore in the store.
func (s *Service) Unlock(passphrase []byte) (*Wallet, error) {
	defer securestore.Zero(passphrase)
	path, err := s.store.FindFirst()
	if err != nil {
		s.metrics.WalletOp("unlock", "not_found")
		return nil, err
	}
	return s.open("unlock", path, passphrase)
}

// UnlockAddress opens the keystore of a specific address.
func (s *Service) UnlockAddress(address string, passphrase []byte) (*Wallet, error) {
	defer securestore.Zero(passphrase)
	path, err := s.resolve(address)
	if err != nil {
		s.metrics.WalletOp("unlock", "not_found")
		return nil, err
	}
	return s.open("unlock", path, passphrase)
}

// ChangePassphrase re-seals a wallet under newPassphrase with a fresh salt
// and nonce. An empty address selects the first keystore.
func (s *Service) ChangePassphrase(address string, oldPassphrase, newPassphrase []byte) error {
	defer securestore.Zero(oldPassphrase)
	defer securestore.Zero(newPassphrase)
	if isBlank(oldPassphrase) || isBlank(newPassphrase) {
		s.metrics.WalletOp("change_passphrase", "rejected")
		return ErrPassphraseRequired
	}
	path, err := s.resolve(address)
	if err != nil {
		s.metrics.WalletOp("change_passphrase", "not_found")
		return err
	}
	w, err := s.open("change_passphrase", path, oldPassphrase)
	if err != nil {
		return err
	}
	if _, err := s.seal("change_passphrase", w.key, w.CreatedAt, newPassphrase, path); err != nil {
		return err
	}
	s.logInfo("change_passphrase", "wallet re-sealed", "address", w.Address)
	return nil
}

// ExportMnemonic unlocks a wallet and returns its 24-word backup phrase.
func (s *Service) ExportMnemonic(address string, passphrase []byte) (string, error) {
	defer securestore.Zero(passphrase)
	path, err := s.resolve(address)
	if err != nil {
		s.metrics.WalletOp("export_mnemonic", "not_found")
		return "", err
	}
	w, err := s.open("export_mnemonic", path, passphrase)
	if err != nil {
		return "", err
	}
	mnemonic, err := keyToMnemonic(w.key)
	if err != nil {
		return "", fmt.Errorf("encode mnemonic: %w", err)
	}
	s.logInfo("export_mnemonic", "mnemonic exported", "address", w.Address)
	return mnemonic, nil
}

// List returns the public summary of every keystore without decrypting any.
func (s *Service) List() ([]Summary, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(records))
	for _, r := range records {
		out = append(out, Summary{Address: r.Address, Path: r.Path, Fingerprint: Fingerprint(r.Address)})
	}
	return out, nil
}

func (s *Service) resolve(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return s.store.FindFirst()
	}
	return s.store.Find(address)
}

// seal encrypts key under passphrase and writes it to target. An empty target
// reuses the keystore already present for the address, if any.
func (s *Service) seal(operation string, key *ecdsa.PrivateKey, createdAt time.Time, passphrase []byte, target string) (*Wallet, error) {
	payload := newPayload(key, createdAt)
	plaintext, err := json.Marshal(payload)
	if err != nil {
		s.metrics.WalletOp(operation, "error")
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	defer securestore.Zero(plaintext)

	started := time.Now()
	blob, err := s.cipher.Encrypt(passphrase, plaintext)
	s.metrics.CryptoDuration("seal", started)
	if err != nil {
		s.metrics.WalletOp(operation, "error")
		return nil, fmt.Errorf("seal keystore: %w", err)
	}
	if target == "" {
		if existing, findErr := s.store.Find(payload.Address); findErr == nil {
			target = existing
		}
	}
	path := target
	if path != "" {
		err = s.store.WriteAt(path, blob)
	} else {
		path, err = s.store.Write(payload.Address, blob)
	}
	if err != nil {
		s.metrics.WalletOp(operation, "storage_error")
		return nil, err
	}
	s.metrics.WalletOp(operation, "ok")
	return &Wallet{Address: payload.Address, Path: path, CreatedAt: payload.CreatedAt, key: key}, nil
}

func (s *Service) open(operation, path string, passphrase []byte) (*Wallet, error) {
	if isBlank(passphrase) {
		s.metrics.WalletOp(operation, "rejected")
		return nil, ErrPassphraseRequired
	}
	if wait := s.retryAfter(path, s.now()); wait > 0 {
		s.metrics.WalletOp(operation, "locked")
		return nil, fmt.Errorf("%w: retry in %s", ErrLocked, wait.Round(time.Second))
	}
	blob, err := securestore.ReadSealedFile(path)
	if err != nil {
		s.metrics.WalletOp(operation, "storage_error")
		if errors.Is(err, securestore.ErrCorruptKeystore) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read %s: %v", keystore.ErrStorageIO, path, err)
	}

	started := time.Now()
	plaintext, err := s.cipher.Decrypt(passphrase, blob)
	s.metrics.CryptoDuration("open", started)
	switch {
	case errors.Is(err, securestore.ErrAuthFailed):
		s.onFailedAttempt(path, s.now())
		s.metrics.WalletOp(operation, "invalid_passphrase")
		s.logWarn(operation, "unlock rejected", "keystore_path", path)
		return nil, ErrInvalidPassphrase
	case errors.Is(err, securestore.ErrCorruptKeystore):
		s.metrics.WalletOp(operation, "corrupt")
		return nil, err
	case err != nil:
		s.metrics.WalletOp(operation, "error")
		return nil, err
	}
	defer securestore.Zero(plaintext)

	payload, key, err := decodePayload(plaintext)
	if err != nil {
		s.metrics.WalletOp(operation, "corrupt")
		return nil, err
	}
	s.resetAttempts(path)
	s.metrics.WalletOp(operation, "ok")
	return &Wallet{Address: payload.Address, Path: path, CreatedAt: payload.CreatedAt, key: key}, nil
}

func (s *Service) logInfo(operation, message string, attrs ...any) {
	base := []any{"component", componentName, "operation", operation}
	s.logger.Info(message, append(base, attrs...)...)
}

func (s *Service) logWarn(operation, message string, attrs ...any) {
	base := []any{"component", componentName, "operation", operation}
	s.logger.Warn(message, append(base, attrs...)...)
}

func isBlank(passphrase []byte) bool {
	return len(bytes.TrimSpace(passphrase)) == 0
}
