package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/pipeline"
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive parse loop",
		Long: `Start an interactive loop that parses every line you type.

Directives:
  .model <name>   Switch model (spacy, transformer, both)
  .save           Toggle persisting results (off by default)
  .stats          Show aggregate statistics
  .help           Show this help
  .quit / .exit   Leave the loop`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			return runRepl(cmd, cmdCtx)
		},
	}
}

func runRepl(cmd *cobra.Command, cmdCtx *CommandContext) error {
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.Database.Path), "repl_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "depparse> ",
		HistoryFile:     historyFile,
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize repl: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "depparse repl (model: %s)\n", cmdCtx.Cfg.Models.Default)
	_, _ = fmt.Fprintln(out, "Type a sentence to parse it, .help for directives, .quit to exit")
	_, _ = fmt.Fprintln(out)

	session := &replSession{
		model: cmdCtx.Cfg.Models.Default,
		save:  false,
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleReplDirective(cmd, cmdCtx, session, line); quit {
				break
			}
			continue
		}

		if err := parseOnce(cmd, cmdCtx, session, line); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

type replSession struct {
	model string
	save  bool
}

func handleReplDirective(cmd *cobra.Command, cmdCtx *CommandContext, session *replSession, line string) bool {
	out := cmd.OutOrStdout()
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		_, _ = fmt.Fprintln(out, `
Directives:
  .model <name>   Switch model (spacy, transformer, both)
  .save           Toggle persisting results
  .stats          Show aggregate statistics
  .quit / .exit   Leave the loop`)

	case ".model":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(out, "Current model: %s\n", session.model)
			return false
		}
		switch parts[1] {
		case "spacy", "transformer", "both":
			session.model = parts[1]
			_, _ = fmt.Fprintf(out, "Model set to %s\n", session.model)
		default:
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown model %q (spacy, transformer, both)\n", parts[1])
		}

	case ".save":
		session.save = !session.save
		if session.save {
			_, _ = fmt.Fprintln(out, "Saving results")
		} else {
			_, _ = fmt.Fprintln(out, "Not saving results")
		}

	case ".stats":
		stats, err := cmdCtx.Store.AggregateStats(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		renderStats(cmdCtx.Renderer, stats, 10)

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown directive %s (type .help)\n", parts[0])
	}
	return false
}

func parseOnce(cmd *cobra.Command, cmdCtx *CommandContext, session *replSession, text string) error {
	res, err := cmdCtx.Pipeline.Run(cmd.Context(), pipeline.Request{
		Text:   text,
		Models: cmdCtx.Cfg.ModelList(session.model),
		Save:   session.save,
	})
	if err != nil {
		return err
	}
	return renderParseResult(cmdCtx.Renderer, res)
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".model",
			readline.PcItem("spacy"),
			readline.PcItem("transformer"),
			readline.PcItem("both"),
		),
		readline.PcItem(".save"),
		readline.PcItem(".stats"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
