package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/cli/output"
	"github.com/nlpstack/depparse/internal/pipeline"
	"github.com/nlpstack/depparse/internal/store"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var (
		modelFlag string
		saveFlag  bool
		langFlag  string
	)

	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse a sentence into dependency relations",
		Long: `Parse free text with a pretrained dependency model and print one
relation per token. Reads from stdin when no text argument is given.`,
		Example: `  # Parse with the default model
  depparse parse "The quick brown fox jumps over the lazy dog."

  # Compare both models and store the results
  depparse parse --model both --save "Time flies like an arrow."

  # Parse piped input as JSON
  echo "Colorless green ideas sleep furiously." | depparse parse -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(raw)
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := cmdCtx.Pipeline.Run(cmd.Context(), pipeline.Request{
				Text:     text,
				Language: langFlag,
				Models:   cmdCtx.Cfg.ModelList(modelFlag),
				Save:     saveFlag,
			})
			if err != nil {
				return err
			}

			return renderParseResult(cmdCtx.Renderer, res)
		},
	}

	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model to use (spacy|transformer|both)")
	cmd.Flags().BoolVar(&saveFlag, "save", false, "Persist the parse results")
	cmd.Flags().StringVar(&langFlag, "language", "", "Language tag of the input text")

	_ = cmd.RegisterFlagCompletionFunc("model", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"spacy", "transformer", "both"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// renderParseResult prints one batch per model. Per-model failures in
// multi-model mode render as a warning line instead of aborting the command.
func renderParseResult(r *output.Renderer, res *pipeline.Result) error {
	if r.Structured() {
		return r.Value(res)
	}

	multi := len(res.Batches) > 1
	for _, b := range res.Batches {
		if multi {
			r.Textf("[%s]\n", b.ModelType)
		}
		if b.Err != nil {
			r.Errorf("Warning: %s failed: %v\n", b.ModelType, b.Err)
			continue
		}
		renderBatch(r, b.Rows)
		if multi {
			r.Textf("\n")
		}
	}

	if res.Sentence != nil {
		r.Textf("Saved sentence %s\n", res.Sentence.ID)
	}
	return nil
}

func renderBatch(r *output.Renderer, rows []*store.Dependency) {
	if r.Mode() == output.ModeTable {
		header := []string{"#", "Token", "POS", "Relation", "Head", "Head POS"}
		cells := make([][]string, 0, len(rows))
		for _, d := range rows {
			cells = append(cells, []string{
				fmt.Sprintf("%d", d.Position), d.TokenText, d.TokenPOS,
				d.DependencyLabel, d.HeadText, d.HeadPOS,
			})
		}
		r.Table(header, cells)
		return
	}

	for _, d := range rows {
		r.Textf("%s -> %s (%s)\n", d.TokenText, d.HeadText, d.DependencyLabel)
	}
}
