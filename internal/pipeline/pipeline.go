// Package pipeline wires normalizer, model adapters, result shaper and store
// into the parse flow: raw text in, persisted dependency rows out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nlpstack/depparse/internal/model"
	"github.com/nlpstack/depparse/internal/normalize"
	"github.com/nlpstack/depparse/internal/store"
)

// Request is one parse request as issued by the CLI or the dashboard.
type Request struct {
	Text     string
	Language string
	// Models selects which adapters run; empty means the default adapter.
	Models []string
	// Save persists the results. When multiple models parse the same text
	// in one request they share a single sentence id, with one dependency
	// batch per model tagged by model type.
	Save bool
}

// Batch is the shaped output of one model run.
type Batch struct {
	ModelType string              `json:"model_type"`
	Rows      []*store.Dependency `json:"rows"`
	// Err records a per-model failure in multi-model mode.
	Err error `json:"-"`
}

// Result is the outcome of a parse request. Sentence is nil unless the
// request was saved.
type Result struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Sentence *store.Sentence `json:"sentence,omitempty"`
	Batches  []Batch         `json:"batches"`
}

// Pipeline holds the long-lived collaborators. Construct once at startup.
type Pipeline struct {
	adapters     map[string]model.Adapter
	defaultModel string
	store        store.Store
	logger       *slog.Logger
}

// Config for New.
type Config struct {
	Adapters     []model.Adapter
	DefaultModel string
	Store        store.Store
	Logger       *slog.Logger
}

// New creates a pipeline over the given adapters and store.
func New(cfg Config) *Pipeline {
	adapters := make(map[string]model.Adapter, len(cfg.Adapters))
	for _, a := range cfg.Adapters {
		adapters[a.Name()] = a
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = model.TypeSpacy
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		adapters:     adapters,
		defaultModel: defaultModel,
		store:        cfg.Store,
		logger:       logger,
	}
}

// Adapters returns the registered model type tags.
func (p *Pipeline) Adapters() []string {
	names := make([]string, 0, len(p.adapters))
	for name := range p.adapters {
		names = append(names, name)
	}
	return names
}

// Run executes one parse request. The request fails only if the input is
// invalid or every requested model fails; individual model failures in
// multi-model mode are recorded on their batch.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	text, err := normalize.Text(req.Text)
	if err != nil {
		return nil, err
	}
	lang := normalize.Language(req.Language, "")

	models := req.Models
	if len(models) == 0 {
		models = []string{p.defaultModel}
	}

	res := &Result{Text: text, Language: lang}
	failures := 0
	for _, name := range models {
		adapter, ok := p.adapters[name]
		if !ok {
			return nil, fmt.Errorf("unknown model %q (available: %v)", name, p.Adapters())
		}

		tokens, err := adapter.Parse(ctx, text)
		if err != nil {
			p.logger.Warn("model parse failed", "model", name, "error", err)
			res.Batches = append(res.Batches, Batch{ModelType: name, Err: err})
			failures++
			continue
		}
		res.Batches = append(res.Batches, Batch{
			ModelType: name,
			Rows:      model.Shape(name, tokens),
		})
	}

	if failures == len(models) {
		return nil, fmt.Errorf("all models failed: %w", res.Batches[0].Err)
	}

	if req.Save {
		if err := p.save(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// save persists the sentence once and attaches every successful batch to its
// id. Any write failure aborts the batch it belongs to.
func (p *Pipeline) save(ctx context.Context, res *Result) error {
	sent, err := p.store.CreateSentence(ctx, res.Text, res.Language)
	if err != nil {
		return err
	}
	res.Sentence = sent

	for _, b := range res.Batches {
		if b.Err != nil || len(b.Rows) == 0 {
			continue
		}
		if err := p.store.InsertDependencies(ctx, sent.ID, b.Rows); err != nil {
			return fmt.Errorf("failed to save %s batch: %w", b.ModelType, err)
		}
		p.logger.Debug("saved dependency batch",
			"sentence_id", sent.ID, "model", b.ModelType, "rows", len(b.Rows))
	}
	return nil
}
