package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &ServerConfig{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{Path: "/some/path"},
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &ServerConfig{
				App:    AppConfig{Environment: tt.env},
				Logger: LoggerConfig{Level: "info"},
				Data:   DataConfig{Path: "/some/path"},
			}

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"WARN", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &ServerConfig{
				App:    AppConfig{Environment: "development"},
				Logger: LoggerConfig{Level: tt.level},
				Data:   DataConfig{Path: "/some/path"},
			}

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := &ServerConfig{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
	}

	err := cfg.Validate()
	assert.ErrorIs(t, err, errMissingDataPath)
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &ServerConfig{}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "Emperor", "server"), cfg.Data.Path)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &ServerConfig{Data: DataConfig{Path: "~/emperor-data"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "emperor-data"), cfg.Data.Path)
}

func TestExpandDataPath_AbsolutePath(t *testing.T) {
	cfg := &ServerConfig{Data: DataConfig{Path: "/var/lib/emperor"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/emperor", cfg.Data.Path)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	const envKey = "EMPEROR_TEST_CONFIG_VALUE"
	t.Setenv(envKey, "from-env")

	// Flag beats env var.
	assert.Equal(t, "from-flag", getConfigValue("from-flag", envKey, "default"))

	// Env var beats default.
	assert.Equal(t, "from-env", getConfigValue("", envKey, "default"))

	// Default when nothing else is set.
	assert.Equal(t, "default", getConfigValue("", "EMPEROR_TEST_UNSET_VALUE", "default"))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("45s", "EMPEROR_TEST_UNSET_DURATION", "15s")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	d, err = parseDurationValue("", "EMPEROR_TEST_UNSET_DURATION", "15s")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	_, err = parseDurationValue("not-a-duration", "EMPEROR_TEST_UNSET_DURATION", "15s")
	assert.Error(t, err)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Emperor test config
EMPEROR_TEST_KEY_ONE=value1
EMPEROR_TEST_KEY_TWO="quoted value"

EMPEROR_TEST_KEY_THREE = spaced
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("EMPEROR_TEST_KEY_ONE", "")
	os.Unsetenv("EMPEROR_TEST_KEY_ONE")
	t.Setenv("EMPEROR_TEST_KEY_TWO", "")
	os.Unsetenv("EMPEROR_TEST_KEY_TWO")
	t.Setenv("EMPEROR_TEST_KEY_THREE", "")
	os.Unsetenv("EMPEROR_TEST_KEY_THREE")

	err := loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("EMPEROR_TEST_KEY_ONE"))
	assert.Equal(t, "quoted value", os.Getenv("EMPEROR_TEST_KEY_TWO"))
	assert.Equal(t, "spaced", os.Getenv("EMPEROR_TEST_KEY_THREE"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	require.NoError(t, os.WriteFile(envFile, []byte("NOT_A_KEY_VALUE_PAIR\n"), 0o600))

	err := loadEnvFile(envFile)
	assert.ErrorContains(t, err, "invalid format at line 1")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	require.NoError(t, os.WriteFile(envFile, []byte("EMPEROR_TEST_EXISTING=from-file\n"), 0o600))

	t.Setenv("EMPEROR_TEST_EXISTING", "from-env")

	err := loadEnvFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", os.Getenv("EMPEROR_TEST_EXISTING"))
}
