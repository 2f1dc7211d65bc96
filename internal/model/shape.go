package model

import (
	"github.com/nlpstack/depparse/internal/store"
)

// Shape converts a model adapter's token list into dependency rows ready for
// persistence. Token order is preserved via the Position column; the sentence
// id is assigned later by the store. One row per token, no aggregation.
func Shape(modelType string, tokens []Token) []*store.Dependency {
	rows := make([]*store.Dependency, 0, len(tokens))
	for i, tok := range tokens {
		rows = append(rows, &store.Dependency{
			Position:        i,
			TokenText:       tok.Text,
			TokenPOS:        tok.POS,
			DependencyLabel: tok.Dep,
			HeadText:        tok.HeadText,
			HeadPOS:         tok.HeadPOS,
			ModelType:       modelType,
			Confidence:      tok.Confidence,
		})
	}
	return rows
}
