// Package store persists parsed sentences and their dependency rows.
//
// Two linked tables back the package: sentences holds one row per parse
// request, dependencies holds one row per token per model run. Rows are
// immutable after insertion and removed only by a whole-database reset.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the persistence layer. Callers match with errors.Is.
var (
	// ErrIntegrity indicates a referential violation, e.g. dependency rows
	// pointing at a sentence that does not exist. This is a programming
	// error, not a user error.
	ErrIntegrity = errors.New("referential integrity violation")

	// ErrStorageUnavailable indicates the database could not be opened or
	// reached (permissions, missing directory, disk issues).
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Sentence is one parsed input text. Immutable after creation.
type Sentence struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Dependency is one token of a parsed sentence together with its grammatical
// head and relation label. Position preserves token order within the model
// output. Confidence is nil when the underlying model reports none.
type Dependency struct {
	ID              string   `json:"id"`
	SentenceID      string   `json:"sentence_id"`
	Position        int      `json:"position"`
	TokenText       string   `json:"token_text"`
	TokenPOS        string   `json:"token_pos"`
	DependencyLabel string   `json:"dependency_label"`
	HeadText        string   `json:"head_text"`
	HeadPOS         string   `json:"head_pos"`
	ModelType       string   `json:"model_type"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

// Stats holds frequency counts across all stored dependency rows.
type Stats struct {
	SentenceCount   int64            `json:"sentence_count"`
	DependencyCount int64            `json:"dependency_count"`
	LabelCounts     map[string]int64 `json:"label_counts"`
	POSCounts       map[string]int64 `json:"pos_counts"`
	ModelCounts     map[string]int64 `json:"model_counts"`
}

// Store is the persistence contract for parse results.
type Store interface {
	// CreateSentence inserts one sentence row and returns it with a
	// generated id. Called exactly once per parse request; multiple model
	// batches for the same request share the returned id.
	CreateSentence(ctx context.Context, text, lang string) (*Sentence, error)

	// InsertDependencies bulk-inserts dependency rows referencing
	// sentenceID in a single transaction. No partial batches: any failure
	// rolls back every row. Unknown sentence ids yield ErrIntegrity.
	InsertDependencies(ctx context.Context, sentenceID string, rows []*Dependency) error

	// GetSentence retrieves one sentence by id, or nil if not found.
	GetSentence(ctx context.Context, id string) (*Sentence, error)

	// ListSentences returns stored sentences ordered most recent first.
	ListSentences(ctx context.Context, limit, offset int) ([]*Sentence, error)

	// ListDependencies returns the dependency rows of a sentence in token
	// order (grouped by model type).
	ListDependencies(ctx context.Context, sentenceID string) ([]*Dependency, error)

	// AggregateStats scans all dependency rows and returns frequency
	// counts for the statistics dashboard.
	AggregateStats(ctx context.Context) (*Stats, error)

	// Reset deletes all stored sentences and dependencies.
	Reset(ctx context.Context) error

	Close() error
}
