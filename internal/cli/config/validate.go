package config

import (
	"fmt"
)

// Validate checks the loaded configuration and returns actionable errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver\nHint: set DEPPARSE_DATABASE__DSN or database.dsn in %s", ConfigFileName)
		}
	default:
		return fmt.Errorf("unknown database driver %q (supported: sqlite, postgres)", c.Database.Driver)
	}

	switch c.Models.Default {
	case "spacy", "transformer", "both":
	default:
		return fmt.Errorf("unknown default model %q (supported: spacy, transformer, both)", c.Models.Default)
	}

	switch c.Output {
	case "", "auto", "text", "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (supported: auto, text, table, json, yaml)", c.Output)
	}

	if c.UI.Port <= 0 || c.UI.Port > 65535 {
		return fmt.Errorf("invalid ui.port %d", c.UI.Port)
	}

	return nil
}
