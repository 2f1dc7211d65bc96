package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpstack/depparse/internal/normalize"
)

func newTransformerTestServer(t *testing.T, handler http.HandlerFunc) *TransformerAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewTransformerAdapter(TransformerConfig{
		BaseURL: srv.URL,
		Model:   "dbmdz/bert-large-cased-finetuned-conll03-english",
		Token:   "hf_test",
		Timeout: 5 * time.Second,
	})
	a.retryBase = time.Millisecond
	return a
}

func TestTransformerParse(t *testing.T) {
	a := newTransformerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/dbmdz/bert-large-cased-finetuned-conll03-english", r.URL.Path)
		require.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"entity_group": "PER", "word": "Ada", "score": 0.997},
			{"entity_group": "ORG", "word": "Analytical Society", "score": 0.84}
		]`))
	})

	tokens, err := a.Parse(context.Background(), "Ada founded the Analytical Society.")
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	assert.Equal(t, "Ada", tokens[0].Text)
	assert.Equal(t, "PER", tokens[0].Dep)
	// Tokens without head predictions are their own heads.
	assert.Equal(t, "Ada", tokens[0].HeadText)
	require.NotNil(t, tokens[0].Confidence)
	assert.InDelta(t, 0.997, *tokens[0].Confidence, 1e-9)
}

func TestTransformerParseNestedResponse(t *testing.T) {
	a := newTransformerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[{"entity": "B-LOC", "word": "Paris", "score": 0.99}]]`))
	})

	tokens, err := a.Parse(context.Background(), "Paris")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "B-LOC", tokens[0].Dep)
}

func TestTransformerParseRetriesWhileLoading(t *testing.T) {
	var calls atomic.Int32
	a := newTransformerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": "Model is currently loading", "estimated_time": 20}`))
			return
		}
		_, _ = w.Write([]byte(`[{"entity_group": "PER", "word": "Ada", "score": 0.9}]`))
	})

	tokens, err := a.Parse(context.Background(), "Ada")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestTransformerParseUnauthorized(t *testing.T) {
	a := newTransformerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := a.Parse(context.Background(), "hello")
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), "API token")
}

func TestTransformerParseEmptyInput(t *testing.T) {
	a := newTransformerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for empty input")
	})

	_, err := a.Parse(context.Background(), "")
	require.ErrorIs(t, err, normalize.ErrEmptyInput)
}

func TestDecodeEntitiesClampsScores(t *testing.T) {
	tokens, err := decodeEntities([]byte(`[{"entity_group": "X", "word": "w", "score": 1.7}]`))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, 1.0, *tokens[0].Confidence)
}
