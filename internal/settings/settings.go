// Package settings loads process settings from an optional YAML file and
// environment overrides.
package settings

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
)

// #region settings
// Settings are the process-wide knobs.
type Settings struct {
	DBPath              string `yaml:"dbPath"`
	AllowConfigFallback bool   `yaml:"-"` // ALLOW_CONFIG_FALLBACK only
	LogLevel            string `yaml:"logLevel"`
	LogFormat           string `yaml:"logFormat"`
}

const (
	EnvDBPath    = "VERIFIER_DB"
	EnvLogLevel  = "VERIFIER_LOG_LEVEL"
	EnvLogFormat = "VERIFIER_LOG_FORMAT"
)

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		DBPath:    "verifier.db",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// #endregion settings

// #region load
// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides. AllowConfigFallback comes from ALLOW_CONFIG_FALLBACK
// alone and is true only for the exact value "true"; the file cannot set it.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	s.DBPath = envOr(EnvDBPath, s.DBPath)
	s.LogLevel = envOr(EnvLogLevel, s.LogLevel)
	s.LogFormat = envOr(EnvLogFormat, s.LogFormat)
	s.AllowConfigFallback = config.FallbackAllowedFromEnv()

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the process cannot run with.
func (s Settings) Validate() error {
	if s.DBPath == "" {
		return errors.New("settings: dbPath is required")
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("settings: unknown logFormat %q", s.LogFormat)
	}
	return nil
}

// #endregion load

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
