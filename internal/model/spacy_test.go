package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpstack/depparse/internal/normalize"
)

// foxTokens is the sidecar output for the canonical test sentence
// "The quick brown fox jumps over the lazy dog.".
var foxTokens = []Token{
	{Text: "The", POS: "DET", Dep: "det", HeadText: "fox", HeadPOS: "NOUN"},
	{Text: "quick", POS: "ADJ", Dep: "amod", HeadText: "fox", HeadPOS: "NOUN"},
	{Text: "brown", POS: "ADJ", Dep: "amod", HeadText: "fox", HeadPOS: "NOUN"},
	{Text: "fox", POS: "NOUN", Dep: "nsubj", HeadText: "jumps", HeadPOS: "VERB"},
	{Text: "jumps", POS: "VERB", Dep: "ROOT", HeadText: "jumps", HeadPOS: "VERB"},
	{Text: "over", POS: "ADP", Dep: "prep", HeadText: "jumps", HeadPOS: "VERB"},
	{Text: "the", POS: "DET", Dep: "det", HeadText: "dog", HeadPOS: "NOUN"},
	{Text: "lazy", POS: "ADJ", Dep: "amod", HeadText: "dog", HeadPOS: "NOUN"},
	{Text: "dog", POS: "NOUN", Dep: "pobj", HeadText: "over", HeadPOS: "ADP"},
	{Text: ".", POS: "PUNCT", Dep: "punct", HeadText: "jumps", HeadPOS: "VERB"},
}

func newSpacyTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *SpacyAdapter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewSpacyAdapter(SpacyConfig{BaseURL: srv.URL, Model: "en_core_web_sm", Timeout: 5 * time.Second})
	a.retryBase = time.Millisecond
	return srv, a
}

func TestSpacyParse(t *testing.T) {
	var gotReq spacyRequest
	_, a := newSpacyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/parse", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(spacyResponse{Tokens: foxTokens})
	})

	tokens, err := a.Parse(context.Background(), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	require.Len(t, tokens, 10)

	assert.Equal(t, "en_core_web_sm", gotReq.Model)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", gotReq.Text)

	// Row order matches token order in the source text.
	assert.Equal(t, "The", tokens[0].Text)
	assert.Equal(t, ".", tokens[9].Text)

	// The root token is its own head; fox attaches to jumps via nsubj.
	jumps := tokens[4]
	assert.Equal(t, "ROOT", jumps.Dep)
	assert.Equal(t, jumps.Text, jumps.HeadText)
	fox := tokens[3]
	assert.Equal(t, "nsubj", fox.Dep)
	assert.Equal(t, "jumps", fox.HeadText)

	// spaCy reports no confidence.
	assert.Nil(t, tokens[0].Confidence)
}

func TestSpacyParseNormalizesInput(t *testing.T) {
	var gotReq spacyRequest
	_, a := newSpacyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(spacyResponse{})
	})

	_, err := a.Parse(context.Background(), "  hello \t world ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", gotReq.Text)
}

func TestSpacyParseEmptyInput(t *testing.T) {
	_, a := newSpacyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for empty input")
	})

	_, err := a.Parse(context.Background(), "   \n ")
	require.ErrorIs(t, err, normalize.ErrEmptyInput)
}

func TestSpacyParseModelNotInstalled(t *testing.T) {
	_, a := newSpacyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := a.Parse(context.Background(), "hello")
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), "spacy download")
}

func TestSpacyParseRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	_, a := newSpacyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(spacyResponse{Tokens: foxTokens[:1]})
	})

	tokens, err := a.Parse(context.Background(), "The")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSpacyParseServiceDown(t *testing.T) {
	srv, a := newSpacyTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := a.Parse(context.Background(), "hello")
	require.ErrorIs(t, err, ErrModelUnavailable)
}
