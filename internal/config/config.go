package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultLogMaxSizeMB = 10
	DefaultLogMaxFiles  = 3
	DefaultReadyTimeout = 10 * time.Second
	DefaultReconcile    = 30 * time.Second
	DefaultTrigger      = "auto"
)

// Settings is the daemon's effective configuration.
type Settings struct {
	// RulesFile is the rectangle table (YAML, JSON or TOML).
	RulesFile string `mapstructure:"rules_file"`
	// LogFile is the diagnostics log (default: ~/.local/share/winplace/winplace.log)
	LogFile      string `mapstructure:"log_file"`
	LogMaxSizeMB int    `mapstructure:"log_max_size_mb"`
	LogMaxFiles  int    `mapstructure:"log_max_files"`
	// ReadyTimeout bounds the wait for a new window to finish initializing.
	ReadyTimeout         time.Duration `mapstructure:"ready_timeout"`
	CaseInsensitivePaths bool          `mapstructure:"case_insensitive_paths"`
	// ReconcileInterval prunes handled windows that vanished without a close
	// notification. Zero disables it.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	// ShutdownTrigger is one of: auto, console, service
	ShutdownTrigger string `mapstructure:"shutdown_trigger"`
	Debug           bool   `mapstructure:"debug"`
}

// ValidationError reports an invalid setting or rule, with its location when
// known.
type ValidationError struct {
	Path   string
	File   string
	Line   int
	Column int
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.File, e.Line, e.Column, e.Path, e.Err)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks settings for values the daemon cannot run with.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.RulesFile) == "" {
		return &ValidationError{Path: "rules_file", Err: fmt.Errorf("rules_file is required")}
	}
	if s.LogMaxSizeMB < 0 {
		return &ValidationError{Path: "log_max_size_mb", Err: fmt.Errorf("log_max_size_mb must be >= 0")}
	}
	if s.LogMaxFiles < 0 {
		return &ValidationError{Path: "log_max_files", Err: fmt.Errorf("log_max_files must be >= 0")}
	}
	if s.ReadyTimeout <= 0 {
		return &ValidationError{Path: "ready_timeout", Err: fmt.Errorf("ready_timeout must be > 0")}
	}
	if s.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	switch s.ShutdownTrigger {
	case "auto", "console", "service":
	default:
		return &ValidationError{Path: "shutdown_trigger", Err: fmt.Errorf("shutdown_trigger must be one of: auto, console, service")}
	}
	return nil
}

func configDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winplace"), nil
}

// DefaultConfigPath is ~/.config/winplace/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultRulesPath is ~/.config/winplace/window_positions.yaml.
func DefaultRulesPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "window_positions.yaml"), nil
}

// DefaultLogPath is ~/.local/share/winplace/winplace.log.
func DefaultLogPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "winplace", "winplace.log"), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
