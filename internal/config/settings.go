package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. WINPLACE_LOG_FILE.
const EnvPrefix = "WINPLACE"

// NewViper returns a viper instance with defaults and environment overrides
// for every setting. Callers may bind command-line flags before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	if p, err := DefaultRulesPath(); err == nil {
		v.SetDefault("rules_file", p)
	}
	if p, err := DefaultLogPath(); err == nil {
		v.SetDefault("log_file", p)
	}
	v.SetDefault("log_max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log_max_files", DefaultLogMaxFiles)
	v.SetDefault("ready_timeout", DefaultReadyTimeout)
	v.SetDefault("reconcile_interval", DefaultReconcile)
	v.SetDefault("case_insensitive_paths", false)
	v.SetDefault("shutdown_trigger", DefaultTrigger)
	v.SetDefault("debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads settings from path, or from DefaultConfigPath when path is
// empty. A missing default file is not an error; a missing explicit file is.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if path == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		exists, err := pathExists(def)
		if err != nil {
			return nil, err
		}
		if exists {
			path = def
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%s: failed to read config: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	var err error
	if s.RulesFile, err = ExpandHome(s.RulesFile); err != nil {
		return nil, err
	}
	if s.LogFile, err = ExpandHome(s.LogFile); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		if verr, ok := err.(*ValidationError); ok && path != "" {
			verr.File = path
		}
		return nil, err
	}
	return &s, nil
}
