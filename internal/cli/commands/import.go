package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/ingest"
	"github.com/nlpstack/depparse/internal/pipeline"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var (
		modelFlag  string
		langFlag   string
		limitFlag  int
		dryRunFlag bool
	)

	cmd := &cobra.Command{
		Use:   "import <path|url>",
		Short: "Parse and store every sentence of a document",
		Long: `Read a local file or fetch a URL, extract its text (HTML pages are
converted to plain text first), split it into sentences, then parse and
store each one.`,
		Example: `  # Import a local text file
  depparse import notes.txt

  # Import a web page, first 20 sentences only
  depparse import https://en.wikipedia.org/wiki/Dependency_grammar --limit 20

  # Preview the sentence split without parsing
  depparse import notes.txt --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sentences, err := ingest.Source(ctx, args[0])
			if err != nil {
				return err
			}
			if limitFlag > 0 && len(sentences) > limitFlag {
				sentences = sentences[:limitFlag]
			}
			if len(sentences) == 0 {
				return fmt.Errorf("no sentences found in %s", args[0])
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			r := cmdCtx.Renderer

			if dryRunFlag {
				for i, s := range sentences {
					r.Textf("%3d: %s\n", i+1, s)
				}
				return nil
			}

			models := cmdCtx.Cfg.ModelList(modelFlag)
			saved, failed := 0, 0
			for _, s := range sentences {
				_, err := cmdCtx.Pipeline.Run(ctx, pipeline.Request{
					Text:     s,
					Language: langFlag,
					Models:   models,
					Save:     true,
				})
				if err != nil {
					failed++
					r.Errorf("Warning: %q: %v\n", s, err)
					continue
				}
				saved++
			}

			r.Textf("Imported %d of %d sentences from %s\n", saved, len(sentences), args[0])
			if failed == len(sentences) {
				return fmt.Errorf("all %d sentences failed to parse", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model to use (spacy|transformer|both)")
	cmd.Flags().StringVar(&langFlag, "language", "", "Language tag of the document")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum number of sentences to import (0 = all)")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Print the sentence split without parsing")

	return cmd
}
