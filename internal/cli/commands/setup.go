// Package commands implements the depparse subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/cli/config"
	"github.com/nlpstack/depparse/internal/cli/output"
	"github.com/nlpstack/depparse/internal/model"
	"github.com/nlpstack/depparse/internal/pipeline"
	"github.com/nlpstack/depparse/internal/store"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *store.SQLStore
	Pipeline *pipeline.Pipeline
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with store, pipeline and
// renderer. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.New(pipeline.Config{
		Adapters:     buildAdapters(cfg),
		DefaultModel: cfg.Models.Default,
		Store:        st,
		Logger:       logger,
	})

	mode := output.Mode(cfg.Output)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = st.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Store:    st,
		Pipeline: p,
		Renderer: r,
	}, cleanup, nil
}

// getConfig returns the loaded configuration, falling back to a fresh load
// when a command runs outside the root command (tests, mostly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		cfg = &config.Config{
			Database: config.DatabaseConfig{Driver: config.DefaultDBDriver, Path: config.DefaultDBPath},
			Models:   config.ModelsConfig{Default: config.DefaultModel},
			Language: config.DefaultLanguage,
			UI:       config.UIConfig{Port: config.DefaultUIPort},
		}
	}
	return cfg
}

// openStore opens the configured database, creating the parent directory for
// a file-backed SQLite store.
func openStore(cfg *config.Config) (*store.SQLStore, error) {
	dsn := cfg.Database.DSN
	if cfg.Database.Driver == store.DriverSQLite {
		dsn = cfg.Database.Path
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, err
			}
		}
	}
	return store.Open(cfg.Database.Driver, dsn)
}

// buildAdapters constructs every configured model adapter. Unreachable
// backends surface at parse time, not here.
func buildAdapters(cfg *config.Config) []model.Adapter {
	return []model.Adapter{
		model.NewSpacyAdapter(model.SpacyConfig{
			BaseURL: cfg.Models.Spacy.BaseURL,
			Model:   cfg.Models.Spacy.Model,
			Timeout: cfg.Models.Spacy.Timeout,
		}),
		model.NewTransformerAdapter(model.TransformerConfig{
			BaseURL:   cfg.Models.Transformer.BaseURL,
			Model:     cfg.Models.Transformer.Model,
			Token:     cfg.Models.Transformer.Token,
			Timeout:   cfg.Models.Transformer.Timeout,
			RateLimit: cfg.Models.Transformer.RateLimit,
		}),
	}
}
