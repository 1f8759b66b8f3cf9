package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envConfig          = "VEROX_CONFIG"
	envDataDir         = "VEROX_DATA_DIR"
	envKeystoreDir     = "VEROX_KEYSTORE_DIR"
	envLogLevel        = "VEROX_LOG_LEVEL"
	envLogFormat       = "VEROX_LOG_FORMAT"
	envBiometricTTL    = "VEROX_BIOMETRIC_TIMEOUT"
	envVaultBackend    = "VEROX_VAULT_BACKEND"
	envKDFTime         = "VEROX_KDF_TIME"
	envKDFMemoryKB     = "VEROX_KDF_MEMORY_KB"
	envKDFThreads      = "VEROX_KDF_THREADS"
	envMetricsTextfile = "VEROX_METRICS_TEXTFILE"
)

func ApplyEnvOverrides(cfg *Config) {
	if v := envString(envDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := envString(envKeystoreDir); v != "" {
		cfg.Keystore.Dir = v
	}
	if v := envString(envLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := envString(envLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := envString(envVaultBackend); v != "" {
		cfg.Biometric.Vault = strings.ToLower(v)
	}
	if v := envString(envMetricsTextfile); v != "" {
		cfg.Metrics.Textfile = v
	}
	cfg.Biometric.Timeout = envDurationWithFallback(envBiometricTTL, cfg.Biometric.Timeout)
	cfg.KDF.Time = uint32(envBoundedIntWithFallback(envKDFTime, int(cfg.KDF.Time), 1, 64))
	cfg.KDF.MemoryKB = uint32(envBoundedIntWithFallback(envKDFMemoryKB, int(cfg.KDF.MemoryKB), 8, 4*1024*1024))
	cfg.KDF.Threads = uint8(envBoundedIntWithFallback(envKDFThreads, int(cfg.KDF.Threads), 1, 255))
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envIntWithFallback(key string, fallback int) int {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBoundedIntWithFallback(key string, fallback, min, max int) int {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	value := envIntWithFallback(key, fallback)
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// envDurationWithFallback accepts Go durations ("45s") or bare seconds ("45").
func envDurationWithFallback(key string, fallback time.Duration) time.Duration {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
