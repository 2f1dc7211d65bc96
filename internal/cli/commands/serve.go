package commands

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nlpstack/depparse/internal/ui"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Seed      bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long: `Start a local web server with the parsing dashboard.

The dashboard provides:
- A parse form with model selection
- Recent sentences with their dependency rows
- Live aggregate statistics`,
		Example: `  # Start on the default port
  depparse serve

  # Custom port, keep the browser closed
  depparse serve --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "Insert sample sentences into an empty database")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg

	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	if opts.Seed {
		if err := cmdCtx.Store.SeedSamples(cmd.Context()); err != nil {
			return err
		}
	}

	watchPath := ""
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path != ":memory:" {
		watchPath = cfg.Database.Path
	}

	server := ui.NewServer(ui.Config{
		Store:         cmdCtx.Store,
		Pipeline:      cmdCtx.Pipeline,
		Port:          port,
		SessionSecret: cfg.UI.SessionSecret,
		WatchPath:     watchPath,
		Logger:        cmdCtx.Logger,
	})

	if !opts.NoBrowser {
		go openBrowser(fmt.Sprintf("http://localhost:%d", port))
	}

	r := cmdCtx.Renderer
	r.Textf("Starting dashboard on http://localhost:%d\n", port)
	r.Textf("Press Ctrl+C to stop\n")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
