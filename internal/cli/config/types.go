// Package config provides configuration management for the depparse CLI.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"time"
)

// Default configuration values.
const (
	DefaultDBDriver     = "sqlite"
	DefaultDBPath       = ".depparse/depparse.db"
	DefaultModel        = "spacy"
	DefaultLanguage     = "en"
	DefaultOutput       = "auto"
	DefaultUIPort       = 8765
	DefaultSpacyURL     = "http://localhost:8020"
	DefaultSpacyModel   = "en_core_web_sm"
	DefaultHFURL        = "https://api-inference.huggingface.co"
	DefaultHFModel      = "dbmdz/bert-large-cased-finetuned-conll03-english"
	DefaultHFRateLimit  = 2.0
	DefaultSpacyTimeout = 30 * time.Second
	DefaultHFTimeout    = 60 * time.Second
)

// DatabaseConfig selects and locates the results database.
type DatabaseConfig struct {
	// Driver is "sqlite" (embedded, default) or "postgres".
	Driver string `koanf:"driver"`
	// Path is the SQLite file path (":memory:" for ephemeral).
	Path string `koanf:"path"`
	// DSN is the postgres connection string; required for that driver.
	DSN string `koanf:"dsn"`
}

// SpacyConfig configures the spaCy sidecar client.
type SpacyConfig struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// TransformerConfig configures the hosted inference client.
type TransformerConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Model     string        `koanf:"model"`
	Token     string        `koanf:"token"`
	RateLimit float64       `koanf:"rate_limit"`
	Timeout   time.Duration `koanf:"timeout"`
}

// ModelsConfig groups model selection and per-variant settings.
type ModelsConfig struct {
	// Default is the model used when no --model flag is given:
	// "spacy", "transformer" or "both".
	Default     string            `koanf:"default"`
	Spacy       SpacyConfig       `koanf:"spacy"`
	Transformer TransformerConfig `koanf:"transformer"`
}

// UIConfig holds settings for the web dashboard.
type UIConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
}

// Config holds all CLI configuration options.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Models   ModelsConfig   `koanf:"models"`
	Language string         `koanf:"language"`
	UI       UIConfig       `koanf:"ui"`
	Output   string         `koanf:"output"`
	Verbose  bool           `koanf:"verbose"`
}

// ModelList expands a model selection ("spacy", "transformer", "both") into
// adapter names. Empty input falls back to the configured default.
func (c *Config) ModelList(selection string) []string {
	if selection == "" {
		selection = c.Models.Default
	}
	if selection == "both" {
		return []string{"spacy", "transformer"}
	}
	return []string{selection}
}
