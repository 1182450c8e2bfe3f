package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/spf13/viper"
)

// Backends
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config holds all application configuration
type Config struct {
	// Storage
	Backend string // "local" (bolthold file) or "remote" (sheet API)

	// Remote sheet API
	RemoteAPIURL     string
	RemoteSheetID    string
	RemoteTimeout    time.Duration
	RemoteMaxRetries int

	// Server
	ServerPort string

	// Scheduler
	BackupSchedule  string // cron spec, empty disables backups
	BackupKeep      int    // number of backup files to keep
	RefreshSchedule string // cron spec for remote reloads, empty disables

	// Paths
	ConfigDir    string
	DatabaseFile string // $CONFIG_DIR/gowatch.db
	BackupDir    string // $CONFIG_DIR/backups

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	v.SetDefault("BACKEND", BackendLocal)
	v.SetDefault("REMOTE_TIMEOUT_SECONDS", 30)
	v.SetDefault("REMOTE_MAX_RETRIES", 3)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("BACKUP_SCHEDULE", "0 3 * * *")
	v.SetDefault("BACKUP_KEEP", 7)
	v.SetDefault("REFRESH_SCHEDULE", "")
	v.SetDefault("LOG_LEVEL", "info")

	configDir, err := resolveConfigDir(v.GetString("CONFIG_DIR"))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		Backend: strings.ToLower(strings.TrimSpace(v.GetString("BACKEND"))),

		RemoteAPIURL:     v.GetString("REMOTE_API_URL"),
		RemoteSheetID:    v.GetString("REMOTE_SHEET_ID"),
		RemoteTimeout:    time.Duration(v.GetInt("REMOTE_TIMEOUT_SECONDS")) * time.Second,
		RemoteMaxRetries: v.GetInt("REMOTE_MAX_RETRIES"),

		ServerPort: v.GetString("SERVER_PORT"),

		BackupSchedule:  v.GetString("BACKUP_SCHEDULE"),
		BackupKeep:      v.GetInt("BACKUP_KEEP"),
		RefreshSchedule: v.GetString("REFRESH_SCHEDULE"),

		ConfigDir:    configDir,
		DatabaseFile: filepath.Join(configDir, "gowatch.db"),
		BackupDir:    filepath.Join(configDir, "backups"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the backend settings
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendRemote:
		if c.RemoteAPIURL == "" {
			return fmt.Errorf("REMOTE_API_URL is required when BACKEND=remote")
		}
		if c.RemoteSheetID == "" {
			return fmt.Errorf("REMOTE_SHEET_ID is required when BACKEND=remote")
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendLocal, BackendRemote, c.Backend)
	}
	if c.RemoteMaxRetries < 0 {
		return fmt.Errorf("REMOTE_MAX_RETRIES must not be negative")
	}
	if c.BackupKeep < 1 {
		c.BackupKeep = 1
	}
	return nil
}

// IsRemote returns true when records live behind the sheet API
func (c *Config) IsRemote() bool {
	return c.Backend == BackendRemote
}

func resolveConfigDir(configDir string) (string, error) {
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", "gowatch"), nil
	}

	absPath, err := filepath.Abs(configDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
	}
	return absPath, nil
}

// RemoteConfig is the importable config file of the remote backend
type RemoteConfig struct {
	APIURL  string `json:"apiUrl"`
	SheetID string `json:"sheetId"`
}

// ParseRemoteConfig reads a JSON config document. It must carry apiUrl and
// sheetId; anything else returns a *models.ParseError. Other keys are ignored.
func ParseRemoteConfig(data []byte) (*RemoteConfig, error) {
	v := viper.New()
	v.SetConfigType("json")

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, &models.ParseError{Source: "config file", Err: err}
	}

	remote := &RemoteConfig{
		APIURL:  strings.TrimSpace(v.GetString("apiUrl")),
		SheetID: strings.TrimSpace(v.GetString("sheetId")),
	}

	if remote.APIURL == "" || remote.SheetID == "" {
		return nil, &models.ParseError{
			Source: "config file",
			Err:    fmt.Errorf("invalid config file structure: apiUrl and sheetId are required"),
		}
	}

	return remote, nil
}

// Remote returns the remote settings of c as a RemoteConfig
func (c *Config) Remote() RemoteConfig {
	return RemoteConfig{
		APIURL:  c.RemoteAPIURL,
		SheetID: c.RemoteSheetID,
	}
}
