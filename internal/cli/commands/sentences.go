package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/cli/output"
)

// NewSentencesCommand creates the sentences command and its show subcommand.
func NewSentencesCommand() *cobra.Command {
	var (
		limitFlag  int
		offsetFlag int
	)

	cmd := &cobra.Command{
		Use:   "sentences",
		Short: "List stored sentences",
		Long:  `List stored sentences, most recent first.`,
		Example: `  # Most recent 20 sentences
  depparse sentences

  # Page through older entries
  depparse sentences --limit 10 --offset 30

  # Show the dependency rows of one sentence
  depparse sentences show 4f7c2d8a-...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sentences, err := cmdCtx.Store.ListSentences(cmd.Context(), limitFlag, offsetFlag)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.Structured() {
				return r.Value(sentences)
			}

			if len(sentences) == 0 {
				r.Textf("No sentences stored yet. Try: depparse parse --save \"...\"\n")
				return nil
			}

			rows := make([][]string, 0, len(sentences))
			for _, s := range sentences {
				rows = append(rows, []string{
					s.ID, s.Language, s.CreatedAt.Format(time.RFC3339), s.Text,
				})
			}
			r.Table([]string{"ID", "Lang", "Created", "Text"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum number of sentences to list")
	cmd.Flags().IntVar(&offsetFlag, "offset", 0, "Number of sentences to skip")

	cmd.AddCommand(newSentencesShowCommand())
	return cmd
}

func newSentencesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the dependency rows of a sentence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			sent, err := cmdCtx.Store.GetSentence(ctx, args[0])
			if err != nil {
				return err
			}
			if sent == nil {
				return fmt.Errorf("sentence %s not found", args[0])
			}

			deps, err := cmdCtx.Store.ListDependencies(ctx, sent.ID)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.Structured() {
				return r.Value(struct {
					Sentence     any `json:"sentence" yaml:"sentence"`
					Dependencies any `json:"dependencies" yaml:"dependencies"`
				}{sent, deps})
			}

			r.Textf("%s (%s, %s)\n", sent.Text, sent.Language, sent.CreatedAt.Format(time.RFC3339))
			if r.Mode() == output.ModeTable {
				rows := make([][]string, 0, len(deps))
				for _, d := range deps {
					rows = append(rows, []string{
						d.ModelType, fmt.Sprintf("%d", d.Position), d.TokenText,
						d.TokenPOS, d.DependencyLabel, d.HeadText,
					})
				}
				r.Table([]string{"Model", "#", "Token", "POS", "Relation", "Head"}, rows)
				return nil
			}
			for _, d := range deps {
				r.Textf("[%s] %s -> %s (%s)\n", d.ModelType, d.TokenText, d.HeadText, d.DependencyLabel)
			}
			return nil
		},
	}
}
