package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/dealbook-dev/dealbook/internal/localstore"
)

// Storage backends for persisted client state.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds all configuration for the client
type Config struct {
	// API Configuration
	API APIConfig

	// Storage Configuration
	Storage StorageConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds backend connection settings
type APIConfig struct {
	URL     string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

// StorageConfig selects where session and guest data live
type StorageConfig struct {
	Backend string `validate:"oneof=file sqlite memory"`
	Dir     string `validate:"required_unless=Backend memory"`
	Keyring bool   // keep tokens in the OS keyring
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn warning error fatal panic"`
	Format string `validate:"oneof=json console"` // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	apiURL := getenv("DEALBOOK_API_URL", "http://localhost:3000")

	timeout, err := time.ParseDuration(getenv("DEALBOOK_HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEALBOOK_HTTP_TIMEOUT: %w", err)
	}

	storageDir := os.Getenv("DEALBOOK_STORAGE_DIR")
	if storageDir == "" {
		storageDir, err = localstore.DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	useKeyring := true
	if v := os.Getenv("DEALBOOK_KEYRING"); v != "" {
		useKeyring, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEALBOOK_KEYRING: %w", err)
		}
	}

	cfg := &Config{
		API: APIConfig{
			URL:     strings.TrimRight(apiURL, "/"),
			Timeout: timeout,
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getenv("DEALBOOK_STORAGE", StorageFile)),
			Dir:     storageDir,
			Keyring: useKeyring,
		},
		// Logging defaults keep the terminal quiet
		Logging: LoggingConfig{
			Level:  strings.ToLower(getenv("LOG_LEVEL", "warn")),
			Format: strings.ToLower(getenv("LOG_FORMAT", "console")),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
