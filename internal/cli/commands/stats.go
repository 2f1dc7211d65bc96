package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/cli/output"
	"github.com/nlpstack/depparse/internal/store"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	var topFlag int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics over stored parses",
		Long: `Summarize the stored parses: sentence and relation counts plus the
most frequent dependency labels and part-of-speech tags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := cmdCtx.Store.AggregateStats(cmd.Context())
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.Structured() {
				return r.Value(stats)
			}
			renderStats(r, stats, topFlag)
			return nil
		},
	}

	cmd.Flags().IntVar(&topFlag, "top", 10, "Number of label and POS entries to show")
	return cmd
}

func renderStats(r *output.Renderer, stats *store.Stats, top int) {
	r.Textf("Sentences:    %d\n", stats.SentenceCount)
	r.Textf("Dependencies: %d\n", stats.DependencyCount)

	if len(stats.ModelCounts) > 0 {
		r.Textf("\nBy model:\n")
		for _, e := range sortedCounts(stats.ModelCounts, 0) {
			r.Textf("  %-12s %d\n", e.key, e.n)
		}
	}

	if len(stats.LabelCounts) > 0 {
		r.Textf("\nTop dependency labels:\n")
		r.Table([]string{"Label", "Count"}, countRows(sortedCounts(stats.LabelCounts, top)))
	}
	if len(stats.POSCounts) > 0 {
		r.Textf("\nTop POS tags:\n")
		r.Table([]string{"POS", "Count"}, countRows(sortedCounts(stats.POSCounts, top)))
	}
}

type countEntry struct {
	key string
	n   int64
}

// sortedCounts orders a frequency map by descending count, key ascending as
// the tie-break. top <= 0 keeps everything.
func sortedCounts(m map[string]int64, top int) []countEntry {
	entries := make([]countEntry, 0, len(m))
	for k, n := range m {
		entries = append(entries, countEntry{key: k, n: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].key < entries[j].key
	})
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}
	return entries
}

func countRows(entries []countEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.key, fmt.Sprintf("%d", e.n)})
	}
	return rows
}
