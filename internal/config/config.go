package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"verox/go-wallet/internal/keystore"
	"verox/go-wallet/internal/securestore"
)

const (
	ConfigFileName = "config.yaml"

	VaultKeyring = "keyring"
	VaultFile    = "file"
	VaultMemory  = "memory"

	DefaultBiometricTimeout = 60 * time.Second
	DefaultBiometricService = "verox"
	DefaultBiometricAccount = "verox_biometric"
	DefaultBiometricSecret  = "verox_biometric_authenticated_secret_key_v2"
)

type Config struct {
	DataDir    string
	Keystore   KeystoreConfig
	// KDF parameters are not recorded in keystore blobs; keystores sealed
	// under other values no longer open.
	KDF        securestore.KDFParams
	Biometric  BiometricConfig
	Log        LogConfig
	Unlock     UnlockConfig
	NativeHost NativeHostConfig
	Metrics    MetricsConfig
}

type KeystoreConfig struct {
	Dir       string
	Extension string
}

type BiometricConfig struct {
	Timeout time.Duration
	Vault   string
	Service string
	Account string
	Secret  string
}

type LogConfig struct {
	Level  string
	Format string
}

type UnlockConfig struct {
	MaxBackoff time.Duration
}

type NativeHostConfig struct {
	RPS             float64
	Burst           int
	MaxMessageBytes int
}

type MetricsConfig struct {
	Textfile string
}

// fileConfig mirrors Config for YAML; pointer fields distinguish unset from zero.
type fileConfig struct {
	DataDir  string `yaml:"dataDir"`
	Keystore struct {
		Dir       string `yaml:"dir"`
		Extension string `yaml:"extension"`
	} `yaml:"keystore"`
	KDF struct {
		Time     *uint32 `yaml:"time"`
		MemoryKB *uint32 `yaml:"memoryKB"`
		Threads  *uint8  `yaml:"threads"`
	} `yaml:"kdf"`
	Biometric struct {
		Timeout time.Duration `yaml:"timeout"`
		Vault   string        `yaml:"vault"`
		Service string        `yaml:"service"`
		Account string        `yaml:"account"`
		Secret  string        `yaml:"secret"`
	} `yaml:"biometric"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Unlock struct {
		MaxBackoff time.Duration `yaml:"maxBackoff"`
	} `yaml:"unlock"`
	NativeHost struct {
		RPS             *float64 `yaml:"rps"`
		Burst           *int     `yaml:"burst"`
		MaxMessageBytes int      `yaml:"maxMessageBytes"`
	} `yaml:"nativeHost"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Keystore: KeystoreConfig{
			Dir:       keystore.DefaultDir,
			Extension: keystore.DefaultExtension,
		},
		KDF: securestore.DefaultKDFParams(),
		Biometric: BiometricConfig{
			Timeout: DefaultBiometricTimeout,
			Vault:   VaultKeyring,
			Service: DefaultBiometricService,
			Account: DefaultBiometricAccount,
			Secret:  DefaultBiometricSecret,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Unlock: UnlockConfig{
			MaxBackoff: 32 * time.Second,
		},
		NativeHost: NativeHostConfig{
			RPS:             5,
			Burst:           10,
			MaxMessageBytes: 1 << 20,
		},
	}
}

// DefaultDataDir is ~/.verox, or the working directory when no home is known.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".verox")
}

// Load reads configPath (or $VEROX_CONFIG, or <data-dir>/config.yaml when
// both are empty), merges it over the defaults and applies env overrides.
// Only an explicitly named file is required to exist. A non-empty dataDir
// takes precedence over the file and the environment, as a flag does.
func Load(configPath, dataDir string) (Config, error) {
	cfg := Default()
	dataDir = strings.TrimSpace(dataDir)
	if dir := envString(envDataDir); dir != "" {
		cfg.DataDir = dir
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	explicit := strings.TrimSpace(configPath)
	if explicit == "" {
		explicit = envString(envConfig)
	}
	path := explicit
	if path == "" {
		path = filepath.Join(cfg.DataDir, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		merge(&cfg, parsed)
	case errors.Is(err, fs.ErrNotExist) && explicit == "":
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	ApplyEnvOverrides(&cfg)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(dst *Config, src fileConfig) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.Keystore.Dir != "" {
		dst.Keystore.Dir = src.Keystore.Dir
	}
	if src.Keystore.Extension != "" {
		dst.Keystore.Extension = src.Keystore.Extension
	}
	if src.KDF.Time != nil {
		dst.KDF.Time = *src.KDF.Time
	}
	if src.KDF.MemoryKB != nil {
		dst.KDF.MemoryKB = *src.KDF.MemoryKB
	}
	if src.KDF.Threads != nil {
		dst.KDF.Threads = *src.KDF.Threads
	}
	if src.Biometric.Timeout != 0 {
		dst.Biometric.Timeout = src.Biometric.Timeout
	}
	if src.Biometric.Vault != "" {
		dst.Biometric.Vault = src.Biometric.Vault
	}
	if src.Biometric.Service != "" {
		dst.Biometric.Service = src.Biometric.Service
	}
	if src.Biometric.Account != "" {
		dst.Biometric.Account = src.Biometric.Account
	}
	if src.Biometric.Secret != "" {
		dst.Biometric.Secret = src.Biometric.Secret
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
	if src.Unlock.MaxBackoff != 0 {
		dst.Unlock.MaxBackoff = src.Unlock.MaxBackoff
	}
	if src.NativeHost.RPS != nil {
		dst.NativeHost.RPS = *src.NativeHost.RPS
	}
	if src.NativeHost.Burst != nil {
		dst.NativeHost.Burst = *src.NativeHost.Burst
	}
	if src.NativeHost.MaxMessageBytes != 0 {
		dst.NativeHost.MaxMessageBytes = src.NativeHost.MaxMessageBytes
	}
	if src.Metrics.Textfile != "" {
		dst.Metrics.Textfile = src.Metrics.Textfile
	}
}

// KeystoreDir resolves a relative keystore dir against DataDir.
func (c Config) KeystoreDir() string {
	if filepath.IsAbs(c.Keystore.Dir) {
		return c.Keystore.Dir
	}
	return filepath.Join(c.DataDir, c.Keystore.Dir)
}

// VaultFilePath is where the file vault keeps the registration secret.
func (c Config) VaultFilePath() string {
	return filepath.Join(c.DataDir, ".verox_biometric_keychain")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: dataDir is required")
	}
	if err := c.KDF.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Biometric.Vault {
	case VaultKeyring, VaultFile, VaultMemory:
	default:
		return fmt.Errorf("config: unsupported biometric vault %q", c.Biometric.Vault)
	}
	if c.Biometric.Timeout <= 0 {
		return errors.New("config: biometric timeout must be positive")
	}
	if c.Biometric.Secret == "" || c.Biometric.Service == "" || c.Biometric.Account == "" {
		return errors.New("config: biometric service, account and secret are required")
	}
	if c.Unlock.MaxBackoff < 0 {
		return errors.New("config: unlock maxBackoff must not be negative")
	}
	if c.NativeHost.MaxMessageBytes <= 0 {
		return errors.New("config: nativeHost maxMessageBytes must be positive")
	}
	return nil
}
