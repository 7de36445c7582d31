package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ServerConfig holds the sync server configuration.
type ServerConfig struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	HTTP   HTTPConfig
	Auth   AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds storage configuration.
type DataConfig struct {
	// Path is the base directory for the badger database and the search
	// index (default: ~/Emperor/server).
	Path string
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes).
	// Set by auth.LoadOrGenerateKey in main, not from the environment.
	AccessTokenKey []byte
	// Access token lifetime (default: 720h - sync clients are long-lived).
	AccessTokenDuration time.Duration
}

// LoadServerConfig loads the server configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadServerConfig() (*ServerConfig, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for server data storage")
	port := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 720h)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &ServerConfig{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path: getConfigValue(*dataPath, "EMPEROR_DATA_PATH", ""),
		},
		HTTP: HTTPConfig{
			Port: getConfigValue(*port, "EMPEROR_PORT", "8080"),
		},
	}

	var err error
	cfg.HTTP.ReadTimeout, err = parseDurationValue(*readTimeout, "EMPEROR_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.HTTP.WriteTimeout, err = parseDurationValue(*writeTimeout, "EMPEROR_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.HTTP.IdleTimeout, err = parseDurationValue(*idleTimeout, "EMPEROR_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Auth.AccessTokenDuration, err = parseDurationValue(*accessTokenDuration, "ACCESS_TOKEN_DURATION", "720h")
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration: %w", err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *ServerConfig) Validate() error {
	if err := validateEnvironment(c.App.Environment); err != nil {
		return err
	}
	if err := validateLogLevel(c.Logger.Level); err != nil {
		return err
	}
	if c.Data.Path == "" {
		return errMissingDataPath
	}
	return nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *ServerConfig) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Emperor", "server")

	expanded, err := expandPath(c.Data.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, err)
	}
	return d, nil
}
