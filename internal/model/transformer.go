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
	"golang.org/x/time/rate"

	"github.com/nlpstack/depparse/internal/normalize"
)

// TransformerConfig configures the transformer-backed adapter.
type TransformerConfig struct {
	// BaseURL of the inference API.
	BaseURL string
	// Model is the hosted model id, e.g.
	// dbmdz/bert-large-cased-finetuned-conll03-english.
	Model string
	// Token is the API bearer token, if the endpoint requires one.
	Token string
	// Timeout for a single inference call.
	Timeout time.Duration
	// RateLimit is the maximum requests per second against the hosted API.
	// Zero disables client-side limiting.
	RateLimit float64
}

// TransformerAdapter calls a hosted token-classification model. The model
// produces per-token labels with probabilities; confidence is taken from the
// reported score. It does not predict heads, so each token is recorded as its
// own head.
type TransformerAdapter struct {
	cfg        TransformerConfig
	client     *http.Client
	limiter    *rate.Limiter
	retryBase  time.Duration
	maxRetries uint64
}

// NewTransformerAdapter creates the transformer adapter. Construct once and
// share.
func NewTransformerAdapter(cfg TransformerConfig) *TransformerAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = "dbmdz/bert-large-cased-finetuned-conll03-english"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &TransformerAdapter{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		retryBase:  time.Second,
		maxRetries: 3,
	}
}

// Name returns the model type tag.
func (a *TransformerAdapter) Name() string { return TypeTransformer }

type hfEntity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
}

// Parse runs the hosted model on text. The inference API answers 503 while
// model weights are loading; those responses are retried with backoff.
func (a *TransformerAdapter) Parse(ctx context.Context, text string) ([]Token, error) {
	text, err := normalize.Text(text)
	if err != nil {
		return nil, err
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(map[string]any{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	var raw []byte
	backoff := retry.WithMaxRetries(a.maxRetries, retry.NewFibonacci(a.retryBase))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/models/%s", a.cfg.BaseURL, a.cfg.Model)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if a.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: cannot reach inference API at %s: %v", ErrModelUnavailable, a.cfg.BaseURL, err))
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			raw, err = io.ReadAll(resp.Body)
			return err
		case resp.StatusCode == http.StatusServiceUnavailable:
			// Model weights still loading on the serving side.
			return retry.RetryableError(fmt.Errorf("%w: model %q is loading", ErrModelUnavailable, a.cfg.Model))
		case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: model %q not reachable (%s); check the model id and API token", ErrModelUnavailable, a.cfg.Model, resp.Status)
		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("inference API returned %s: %s", resp.Status, msg)
		}
	})
	if err != nil {
		return nil, err
	}

	return decodeEntities(raw)
}

// decodeEntities accepts both response shapes of the token-classification
// task: a flat entity list, or one list per input.
func decodeEntities(raw []byte) ([]Token, error) {
	var entities []hfEntity
	if err := json.Unmarshal(raw, &entities); err != nil {
		var nested [][]hfEntity
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("failed to decode inference response: %w", err)
		}
		if len(nested) > 0 {
			entities = nested[0]
		}
	}

	tokens := make([]Token, 0, len(entities))
	for _, e := range entities {
		label := e.EntityGroup
		if label == "" {
			label = e.Entity
		}
		score := e.Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		conf := score
		tokens = append(tokens, Token{
			Text:       e.Word,
			POS:        label,
			Dep:        label,
			HeadText:   e.Word,
			HeadPOS:    label,
			Confidence: &conf,
		})
	}
	return tokens, nil
}

var _ Adapter = (*TransformerAdapter)(nil)
