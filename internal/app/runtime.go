// Package app wires configuration, logging, metrics, the keystore and the
// biometric authenticator into one runtime shared by the CLI and the native
// messaging host.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"verox/go-wallet/internal/biometric"
	"verox/go-wallet/internal/config"
	"verox/go-wallet/internal/keystore"
	"verox/go-wallet/internal/metrics"
	"verox/go-wallet/internal/nativehost"
	"verox/go-wallet/internal/platform/logging"
	"verox/go-wallet/internal/platform/ratelimiter"
	"verox/go-wallet/internal/securestore"
	"verox/go-wallet/internal/wallet"
)

type Runtime struct {
	Config    config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
	Store     *keystore.Store
	Wallets   *wallet.Service
	Biometric *biometric.Authenticator
}

type Options struct {
	// LogWriter defaults to stderr.
	LogWriter io.Writer
	// Native defaults to biometric.SystemNative().
	Native biometric.Native
	// Vault overrides the configured backend.
	Vault biometric.Vault
}

func New(cfg config.Config, opts Options) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: opts.LogWriter,
	})
	if err != nil {
		return nil, err
	}
	rec := metrics.New()

	cipher, err := securestore.NewCipher(cfg.KDF)
	if err != nil {
		return nil, err
	}
	store := keystore.New(cfg.KeystoreDir(), cfg.Keystore.Extension)
	wallets, err := wallet.NewService(wallet.Options{
		Store:      store,
		Cipher:     cipher,
		Logger:     logger,
		Metrics:    rec,
		MaxBackoff: cfg.Unlock.MaxBackoff,
	})
	if err != nil {
		return nil, err
	}

	native := opts.Native
	if native == nil {
		native = biometric.SystemNative()
	}
	vault := opts.Vault
	if vault == nil {
		vault, err = NewVault(cfg)
		if err != nil {
			return nil, err
		}
	}
	auth, err := biometric.NewAuthenticator(biometric.AuthenticatorOptions{
		Probe:   biometric.NewNativeProbe(native),
		Gate:    biometric.NewGate(native, logger, rec),
		Vault:   vault,
		Secret:  cfg.Biometric.Secret,
		Method:  native.Name(),
		Timeout: cfg.Biometric.Timeout,
		Logger:  logger,
		Metrics: rec,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("runtime ready",
		"component", "app",
		"operation", "init",
		"keystore_path", store.Dir(),
		"vault", cfg.Biometric.Vault,
		"method", native.Name())
	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Metrics:   rec,
		Store:     store,
		Wallets:   wallets,
		Biometric: auth,
	}, nil
}

// NewVault builds the configured registration-secret backend.
func NewVault(cfg config.Config) (biometric.Vault, error) {
	switch cfg.Biometric.Vault {
	case config.VaultKeyring:
		return biometric.NewKeyringVault(cfg.Biometric.Service, cfg.Biometric.Account), nil
	case config.VaultFile:
		return biometric.NewFileVault(cfg.VaultFilePath()), nil
	case config.VaultMemory:
		return biometric.NewMemoryVault(), nil
	default:
		return nil, fmt.Errorf("unsupported biometric vault %q", cfg.Biometric.Vault)
	}
}

// NativeHost builds a native messaging server over this runtime.
func (r *Runtime) NativeHost() (*nativehost.Server, error) {
	return nativehost.NewServer(nativehost.Options{
		Wallets:         r.Wallets,
		Biometric:       r.Biometric,
		Logger:          r.Logger,
		Metrics:         r.Metrics,
		Limiter:         ratelimiter.New(r.Config.NativeHost.RPS, r.Config.NativeHost.Burst, 10*time.Minute),
		MaxMessageBytes: r.Config.NativeHost.MaxMessageBytes,
	})
}

// Close flushes metrics to the configured textfile, if any.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	if err := r.Metrics.WriteTextfile(r.Config.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
