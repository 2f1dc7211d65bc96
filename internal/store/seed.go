package store

import (
	"context"
	"fmt"
)

// Sample sentences inserted into an empty database so the dashboard has
// something to browse before the first parse.
var sampleSentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"Natural language processing is a fascinating field of artificial intelligence.",
	"Machine learning models can understand complex linguistic patterns.",
	"Dependency parsing reveals the grammatical structure of sentences.",
	"The beautiful sunset painted the sky with vibrant colors.",
}

// SeedSamples inserts the sample sentences when the sentences table is empty.
// Repeated calls are no-ops.
func (s *SQLStore) SeedSamples(ctx context.Context) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count sentences: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, text := range sampleSentences {
		if _, err := s.CreateSentence(ctx, text, "en"); err != nil {
			return fmt.Errorf("failed to seed sample sentence: %w", err)
		}
	}
	return nil
}
