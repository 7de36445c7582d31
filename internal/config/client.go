package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig holds the bookmark client configuration. The CLI owns the
// command-line surface, so the client config reads only the environment
// and the .env file.
type ClientConfig struct {
	Logger LoggerConfig
	Data   DataConfig
	Sync   SyncConfig
}

// SyncConfig holds sync server connection settings. An empty ServerURL
// means the client works purely offline; the sync command reports it.
type SyncConfig struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

// LoadClientConfig loads the client configuration from environment
// variables, the .env file, and defaults, in that order.
func LoadClientConfig() (*ClientConfig, error) {
	_ = loadEnvFile(".env")

	cfg := &ClientConfig{
		Logger: LoggerConfig{
			Level: getConfigValue("", "LOG_LEVEL", "warn"),
		},
		Data: DataConfig{
			Path: getConfigValue("", "EMPEROR_DATA_PATH", ""),
		},
		Sync: SyncConfig{
			ServerURL: getConfigValue("", "EMPEROR_SERVER_URL", ""),
			Token:     getConfigValue("", "EMPEROR_TOKEN", ""),
		},
	}

	var err error
	cfg.Sync.Timeout, err = parseDurationValue("", "EMPEROR_SYNC_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid sync timeout: %w", err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := validateLogLevel(cfg.Logger.Level); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *ClientConfig) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Emperor", "library")

	expanded, err := expandPath(c.Data.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}
