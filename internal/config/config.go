package config

import (
	"os"
	"strconv"

	"gokryptos/internal/errors"
	"gokryptos/ports"
)

// Config holds the process-level knobs of the research harness. The
// cryptological inputs (ciphertext, anchors, plans, gate) never live
// here; those belong to profiles so runs stay reproducible from a
// single file.
type Config struct {
	Ledger   LedgerConfig
	Defaults DefaultsConfig
	LogLevel string
}

// LedgerConfig names the run ledger backing store.
type LedgerConfig struct {
	Path     string
	InMemory bool
}

// DefaultsConfig supplies fallbacks for knobs a profile leaves unset.
type DefaultsConfig struct {
	Seed        int64
	NullSamples int
	NullPolicy  string
	Parallelism int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Ledger: LedgerConfig{
			Path:     getEnvOrDefault("KRYPTOS_LEDGER", "kryptos.db"),
			InMemory: getEnvBoolOrDefault("KRYPTOS_LEDGER_MEMORY", false),
		},
		Defaults: DefaultsConfig{
			Seed:        getEnvInt64OrDefault("KRYPTOS_SEED", 1337),
			NullSamples: getEnvIntOrDefault("KRYPTOS_NULL_SAMPLES", 1000),
			NullPolicy:  getEnvOrDefault("KRYPTOS_NULL_POLICY", "shuffle"),
			Parallelism: getEnvIntOrDefault("KRYPTOS_PARALLELISM", 4),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Ledger.Path == "" && !cfg.Ledger.InMemory {
		return errors.ConfigInvalid("KRYPTOS_LEDGER path is required unless KRYPTOS_LEDGER_MEMORY is set")
	}
	if _, err := ports.ParseNullPolicy(cfg.Defaults.NullPolicy); err != nil {
		return errors.ConfigInvalid("KRYPTOS_NULL_POLICY must be shuffle, mirror or bootstrap")
	}
	if cfg.Defaults.NullSamples < 1 {
		return errors.ConfigInvalid("KRYPTOS_NULL_SAMPLES must be positive")
	}
	if cfg.Defaults.Parallelism < 1 {
		return errors.ConfigInvalid("KRYPTOS_PARALLELISM must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
