// Package config loads and validates pomidoro settings. Both the daemon and
// the client consume a fully-resolved Config: every field is populated before
// either side starts, so partially-initialized configuration cannot occur.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	WorkSeconds            int    `json:"work_duration_seconds"`
	BreakSeconds           int    `json:"break_duration_seconds"`
	SocketDir              string `json:"socket_dir"`
	ResponseTimeoutSeconds int    `json:"response_timeout_seconds"`

	HistoryEnabled bool   `json:"history_enabled"`
	HistoryPath    string `json:"history_path"`

	LogLevel string `json:"log_level"` // debug, info, warn, error, none
	LogPath  string `json:"log_path"`

	// Presentation settings, consumed by the CLI and watch output.
	TimeFormat       string `json:"time_format"` // strftime subset: %H, %M, %S
	PausedStateText  string `json:"paused_state_text"`
	RunningStateText string `json:"running_state_text"`
}

// WorkDuration returns the configured work phase length.
func (c *Config) WorkDuration() time.Duration {
	return time.Duration(c.WorkSeconds) * time.Second
}

// BreakDuration returns the configured break phase length.
func (c *Config) BreakDuration() time.Duration {
	return time.Duration(c.BreakSeconds) * time.Second
}

// ResponseTimeout returns the bound on client waits.
func (c *Config) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSeconds) * time.Second
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "linux":
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "pomidoro")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "pomidoro")
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "pomidoro")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "pomidoro")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "pomidoro")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "pomidoro")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "pomidoro")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "pomidoro")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "pomidoro")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "pomidoro")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		WorkSeconds:            25 * 60,
		BreakSeconds:           5 * 60,
		SocketDir:              filepath.Join(os.TempDir(), "pomidoro"),
		ResponseTimeoutSeconds: 5,
		HistoryEnabled:         true,
		HistoryPath:            filepath.Join(stateDir, "history.db"),
		LogLevel:               "info",
		LogPath:                filepath.Join(stateDir, "pomidoro.log"),
		TimeFormat:             "%M:%S",
		PausedStateText:        "paused",
		RunningStateText:       "running",
	}
}

// Load loads configuration from file. A missing file yields the defaults;
// a present file overrides only the fields it sets.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.SocketDir == "" {
		config.SocketDir = filepath.Join(os.TempDir(), "pomidoro")
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "%M:%S"
	}
	if config.PausedStateText == "" {
		config.PausedStateText = "paused"
	}
	if config.RunningStateText == "" {
		config.RunningStateText = "running"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that every field the core depends on is resolved and
// non-zero.
func (c *Config) Validate() error {
	if c.WorkSeconds <= 0 {
		return fmt.Errorf("work_duration_seconds must be positive, got %d", c.WorkSeconds)
	}
	if c.BreakSeconds <= 0 {
		return fmt.Errorf("break_duration_seconds must be positive, got %d", c.BreakSeconds)
	}
	if c.ResponseTimeoutSeconds <= 0 {
		return fmt.Errorf("response_timeout_seconds must be positive, got %d", c.ResponseTimeoutSeconds)
	}
	if c.SocketDir == "" {
		return fmt.Errorf("socket_dir must not be empty")
	}
	if c.HistoryEnabled && c.HistoryPath == "" {
		return fmt.Errorf("history_path must not be empty when history is enabled")
	}
	return nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
