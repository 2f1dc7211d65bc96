package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nlpstack/depparse/internal/normalize"
)

// SpacyConfig configures the spaCy-backed adapter.
type SpacyConfig struct {
	// BaseURL of the spaCy sidecar, e.g. http://localhost:8020.
	BaseURL string
	// Model is the pipeline name the sidecar should use, e.g. en_core_web_sm.
	Model string
	// Timeout for a single parse call.
	Timeout time.Duration
}

// SpacyAdapter calls a spaCy REST sidecar. The sidecar loads the pretrained
// pipeline once at its own startup; each Parse call is synchronous and
// deterministic for identical input and model version.
type SpacyAdapter struct {
	cfg        SpacyConfig
	client     *http.Client
	retryBase  time.Duration
	maxRetries uint64
}

// NewSpacyAdapter creates the spaCy adapter. Construct once and share.
func NewSpacyAdapter(cfg SpacyConfig) *SpacyAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8020"
	}
	if cfg.Model == "" {
		cfg.Model = "en_core_web_sm"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SpacyAdapter{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		retryBase:  500 * time.Millisecond,
		maxRetries: 2,
	}
}

// Name returns the model type tag.
func (a *SpacyAdapter) Name() string { return TypeSpacy }

type spacyRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type spacyResponse struct {
	Tokens []Token `json:"tokens"`
}

// Parse sends text to the sidecar and returns its token list.
func (a *SpacyAdapter) Parse(ctx context.Context, text string) ([]Token, error) {
	text, err := normalize.Text(text)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(spacyRequest{Text: text, Model: a.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode parse request: %w", err)
	}

	var parsed spacyResponse
	backoff := retry.WithMaxRetries(a.maxRetries, retry.NewFibonacci(a.retryBase))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/parse", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			// Sidecar not up yet; worth a retry before giving up.
			return retry.RetryableError(fmt.Errorf("%w: cannot reach spaCy service at %s: %v (is the sidecar running?)", ErrModelUnavailable, a.cfg.BaseURL, err))
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			// Handled below.
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: model %q not installed on %s (run: python -m spacy download %s)", ErrModelUnavailable, a.cfg.Model, a.cfg.BaseURL, a.cfg.Model)
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%w: spaCy service returned %s", ErrModelUnavailable, resp.Status))
		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("spaCy service rejected request: %s: %s", resp.Status, msg)
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("failed to decode spaCy response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return parsed.Tokens, nil
}

var _ Adapter = (*SpacyAdapter)(nil)
