package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory.
const (
	ConfigFileName    = "depparse.yaml"
	ConfigFileNameAlt = "depparse.yml"
)

// EnvPrefix for environment overrides, e.g.
// DEPPARSE_MODELS__SPACY__BASE_URL. Double underscores separate nesting
// levels so single underscores survive inside key names.
const EnvPrefix = "DEPPARSE_"

// loggerKey stores the logger in the command context.
type loggerKey struct{}

var (
	configFileUsed string
	currentConfig  *Config
)

// ConfigFileUsed returns the config file loaded by the last Load call, or
// empty if none was found.
func ConfigFileUsed() string { return configFileUsed }

// findConfigFile finds the config file to use.
// Priority: explicit path > depparse.yaml > depparse.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration from defaults, config file, environment variables
// and flags, in ascending precedence.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"database.driver":               DefaultDBDriver,
		"database.path":                 DefaultDBPath,
		"models.default":                DefaultModel,
		"models.spacy.base_url":         DefaultSpacyURL,
		"models.spacy.model":            DefaultSpacyModel,
		"models.spacy.timeout":          DefaultSpacyTimeout.String(),
		"models.transformer.base_url":   DefaultHFURL,
		"models.transformer.model":      DefaultHFModel,
		"models.transformer.rate_limit": DefaultHFRateLimit,
		"models.transformer.timeout":    DefaultHFTimeout.String(),
		"language":                      DefaultLanguage,
		"ui.port":                       DefaultUIPort,
		"output":                        DefaultOutput,
		"verbose":                       false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file.
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables.
	// DEPPARSE_DATABASE__DRIVER -> database.driver
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority). Only explicitly set flags are applied.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// Bridge short flag names to their nested config keys.
			switch f.Name {
			case "db":
				return "database.path", posflag.FlagVal(flags, f)
			case "driver":
				return "database.driver", posflag.FlagVal(flags, f)
			case "dsn":
				return "database.dsn", posflag.FlagVal(flags, f)
			case "model":
				return "models.default", posflag.FlagVal(flags, f)
			case "port":
				return "ui.port", posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// The default decoder handles time.Duration strings and weak typing.
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetCurrentConfig returns the configuration loaded by the last Load call, or
// nil before the first load.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key for the logger. Exposed so the commands
// package can retrieve it without an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
