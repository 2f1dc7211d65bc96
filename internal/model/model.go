// Package model wraps pretrained parsing models behind a uniform adapter
// contract. No linguistic analysis happens here: adapters call model-serving
// endpoints and return their token/relation output unchanged in order.
package model

import (
	"context"
	"errors"
)

// Model type tags stored alongside dependency rows.
const (
	TypeSpacy       = "spacy"
	TypeTransformer = "transformer"
)

// ErrModelUnavailable is returned when the pretrained model cannot be
// reached or its weights are not loaded on the serving side. The message
// carries a remediation hint for the user.
var ErrModelUnavailable = errors.New("model unavailable")

// Token is one token of a model's parse output: the token itself, its
// part-of-speech, its dependency relation and the head token it attaches to.
// Confidence is nil when the model does not report one.
type Token struct {
	Text       string   `json:"text"`
	POS        string   `json:"pos"`
	Dep        string   `json:"dep"`
	HeadText   string   `json:"head"`
	HeadPOS    string   `json:"head_pos"`
	Lemma      string   `json:"lemma,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Adapter is the capability contract every model variant implements.
// Implementations are long-lived objects constructed once at startup and
// passed by reference into every parse call. Parse has no side effects
// beyond returning the token list.
type Adapter interface {
	// Name returns the model type tag ("spacy", "transformer").
	Name() string

	// Parse runs the pretrained model on text and returns one Token per
	// model token, in source order. Empty input yields
	// normalize.ErrEmptyInput; unreachable weights yield
	// ErrModelUnavailable.
	Parse(ctx context.Context, text string) ([]Token, error)
}
