package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpstack/depparse/internal/model"
	"github.com/nlpstack/depparse/internal/normalize"
	"github.com/nlpstack/depparse/internal/store"
)

// fakeAdapter returns canned tokens or a canned error.
type fakeAdapter struct {
	name   string
	tokens []model.Token
	err    error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Parse(_ context.Context, text string) ([]model.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

var foxTokens = []model.Token{
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

func newTestPipeline(t *testing.T, adapters ...model.Adapter) (*Pipeline, *store.SQLStore) {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	if len(adapters) == 0 {
		adapters = []model.Adapter{&fakeAdapter{name: model.TypeSpacy, tokens: foxTokens}}
	}
	p := New(Config{Adapters: adapters, DefaultModel: model.TypeSpacy, Store: st})
	return p, st
}

func TestRunDefaultModel(t *testing.T) {
	p, _ := newTestPipeline(t)

	res, err := p.Run(context.Background(), Request{Text: "The quick brown fox jumps over the lazy dog."})
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)
	assert.Equal(t, model.TypeSpacy, res.Batches[0].ModelType)
	assert.Len(t, res.Batches[0].Rows, len(foxTokens))
	assert.Nil(t, res.Sentence, "unsaved request has no sentence row")

	rows := res.Batches[0].Rows
	assert.Equal(t, "ROOT", rows[4].DependencyLabel)
	assert.Equal(t, rows[4].TokenText, rows[4].HeadText)
	assert.Equal(t, "nsubj", rows[3].DependencyLabel)
	assert.Equal(t, "jumps", rows[3].HeadText)
}

func TestRunEmptyInput(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.Run(context.Background(), Request{Text: " \t "})
	require.ErrorIs(t, err, normalize.ErrEmptyInput)
}

func TestRunUnknownModel(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.Run(context.Background(), Request{Text: "hello", Models: []string{"gpt"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestRunSaveRoundTrip(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	res, err := p.Run(ctx, Request{Text: "The quick brown fox jumps over the lazy dog.", Save: true})
	require.NoError(t, err)
	require.NotNil(t, res.Sentence)
	assert.Equal(t, "en", res.Sentence.Language)

	deps, err := st.ListDependencies(ctx, res.Sentence.ID)
	require.NoError(t, err)
	require.Len(t, deps, len(foxTokens))
	for _, d := range deps {
		assert.Equal(t, res.Sentence.ID, d.SentenceID)
	}
}

func TestRunBothModelsShareSentence(t *testing.T) {
	conf := 0.9
	p, st := newTestPipeline(t,
		&fakeAdapter{name: model.TypeSpacy, tokens: foxTokens},
		&fakeAdapter{name: model.TypeTransformer, tokens: []model.Token{
			{Text: "fox", Dep: "MISC", HeadText: "fox", Confidence: &conf},
		}},
	)
	ctx := context.Background()

	res, err := p.Run(ctx, Request{
		Text:   "The quick brown fox jumps over the lazy dog.",
		Models: []string{model.TypeSpacy, model.TypeTransformer},
		Save:   true,
	})
	require.NoError(t, err)
	require.Len(t, res.Batches, 2)
	require.NotNil(t, res.Sentence)

	deps, err := st.ListDependencies(ctx, res.Sentence.ID)
	require.NoError(t, err)
	assert.Len(t, deps, len(foxTokens)+1)

	stats, err := st.AggregateStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.SentenceCount, "both batches share one sentence")
	assert.EqualValues(t, len(foxTokens), stats.ModelCounts[model.TypeSpacy])
	assert.EqualValues(t, 1, stats.ModelCounts[model.TypeTransformer])
}

func TestRunPartialModelFailure(t *testing.T) {
	p, _ := newTestPipeline(t,
		&fakeAdapter{name: model.TypeSpacy, tokens: foxTokens},
		&fakeAdapter{name: model.TypeTransformer, err: model.ErrModelUnavailable},
	)

	res, err := p.Run(context.Background(), Request{
		Text:   "hello world",
		Models: []string{model.TypeSpacy, model.TypeTransformer},
	})
	require.NoError(t, err, "one surviving model is a success")
	require.Len(t, res.Batches, 2)
	assert.NoError(t, res.Batches[0].Err)
	assert.ErrorIs(t, res.Batches[1].Err, model.ErrModelUnavailable)
}

func TestRunAllModelsFail(t *testing.T) {
	p, _ := newTestPipeline(t,
		&fakeAdapter{name: model.TypeSpacy, err: errors.New("boom")},
	)

	_, err := p.Run(context.Background(), Request{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all models failed")
}
