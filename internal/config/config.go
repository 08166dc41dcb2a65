// Package config loads the process-wide service configuration from the
// environment. The resulting Config is immutable and passed explicitly to the
// components that need it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultVersion         = "0.0.1"
	defaultMaxDownloadSize = 52428800 // 50 MB
	defaultTimeoutSeconds  = 30
	defaultListenAddr      = ":8080"
)

// Config holds everything the service reads from the environment at startup.
type Config struct {
	// APIKey is the shared secret accepted via X-API-Key or Bearer token.
	APIKey string
	// Version is reported by /health.
	Version string
	// MaxDownloadSize caps uploads and URL downloads, in bytes.
	MaxDownloadSize int64
	// Timeout bounds each outbound URL fetch.
	Timeout time.Duration
	// ListenAddr is the HTTP bind address.
	ListenAddr string
	// LogLevel is a zerolog level name ("debug", "info", ...). Empty means info.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	// godotenv does not override variables that are already set.
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:          os.Getenv("API_KEY"),
		Version:         getenvDefault("VERSION", defaultVersion),
		MaxDownloadSize: defaultMaxDownloadSize,
		Timeout:         defaultTimeoutSeconds * time.Second,
		ListenAddr:      getenvDefault("LISTEN_ADDR", defaultListenAddr),
		LogLevel:        os.Getenv("LOG_LEVEL"),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY must be set")
	}

	if v := os.Getenv("MAX_DOWNLOAD_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_DOWNLOAD_SIZE: invalid value %q", v)
		}
		cfg.MaxDownloadSize = n
	}

	if v := os.Getenv("TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("TIMEOUT_SECONDS: invalid value %q", v)
		}
		cfg.Timeout = time.Duration(n) * time.Second
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
