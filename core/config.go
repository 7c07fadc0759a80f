package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds process-level configuration for the ctcbeam CLI and service.
// It is distinct from decoder.Options: Config configures the surrounding
// process (where to log, where to persist decode history, which defaults
// to hand the decoder when a caller doesn't override them); decoder.Options
// configures one decode call and never touches the environment.
type Config struct {
	// Persistence
	DBPath string

	// Logging
	LogLevel string
	LogFile  string

	// Serve mode
	ListenAddr string

	// Defaults for decoder.Options, used by the CLI/HTTP layer when a
	// caller does not supply an override.
	DefaultBeamSize      int
	DefaultBeamSizeToken int
	DefaultBeamThreshold float64
	DefaultLMWeight      float64

	// LMStrictVocab is the strict-mode switch: when true, an n-gram adapter
	// that cannot map a vocabulary entry to a known word returns
	// LMVocabularyMissing instead of falling back to the LM's unknown-word
	// probability.
	LMStrictVocab bool

	// APIKeyHash is a bcrypt hash of the API key serve mode requires on the
	// X-API-Key header for /decode. Empty disables auth.
	APIKeyHash string
}

// defaultDBPath returns ~/.ctcbeam/data.db, falling back to ./ctcbeam.db if
// the home directory cannot be determined.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./ctcbeam.db"
	}
	return filepath.Join(home, ".ctcbeam", "data.db")
}

// LoadConfig loads process configuration from environment variables (and,
// via main's use of godotenv, an optional .env file loaded before this is
// called). Every value has a usable default, so LoadConfig never fails on
// missing environment alone; it only returns an error for malformed values
// that can't be coerced to their target type by the env-parsing invariants
// documented in env_parse.go.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBPath:     GetEnvOrDefault("CTCBEAM_DB_PATH", defaultDBPath()),
		LogLevel:   GetEnvOrDefault("CTCBEAM_LOG_LEVEL", "info"),
		LogFile:    GetEnvOrDefault("CTCBEAM_LOG_FILE", "ctcbeam.log"),
		ListenAddr: GetEnvOrDefault("CTCBEAM_LISTEN_ADDR", ":8080"),

		DefaultBeamSize:      ParseIntEnv("CTCBEAM_DEFAULT_BEAM_SIZE", 100),
		DefaultBeamSizeToken: ParseIntEnv("CTCBEAM_DEFAULT_BEAM_SIZE_TOKEN", 1000),
		DefaultBeamThreshold: ParseNonNegativeFloat64Env("CTCBEAM_DEFAULT_BEAM_THRESHOLD", 1000),
		DefaultLMWeight:      ParseFloat64Env("CTCBEAM_DEFAULT_LM_WEIGHT", 0.5),

		LMStrictVocab: ParseBoolEnv("CTCBEAM_LM_STRICT_VOCAB", false),

		APIKeyHash: GetEnvOrDefault("CTCBEAM_API_KEY_HASH", ""),
	}

	if cfg.DefaultBeamSize <= 0 {
		return nil, fmt.Errorf("CTCBEAM_DEFAULT_BEAM_SIZE must be positive, got %d", cfg.DefaultBeamSize)
	}
	if cfg.DefaultBeamThreshold < 0 {
		return nil, fmt.Errorf("CTCBEAM_DEFAULT_BEAM_THRESHOLD must be non-negative, got %f", cfg.DefaultBeamThreshold)
	}

	return cfg, nil
}

// RequestTimeout is the default timeout applied to a single HTTP decode
// request in serve mode. Decoding itself has no internal cancellation
// points, so this bounds only request plumbing, not the beam search loop.
const RequestTimeout = 60 * time.Second
