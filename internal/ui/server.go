// Package ui provides the web dashboard for browsing parses.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/nlpstack/depparse/internal/pipeline"
	"github.com/nlpstack/depparse/internal/store"
	"github.com/nlpstack/depparse/internal/ui/notifier"
)

// Server is the dashboard server.
type Server struct {
	store        store.Store
	pipeline     *pipeline.Pipeline
	sessionStore *sessions.CookieStore
	port         int
	watchPath    string
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the dashboard server.
type Config struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Port     int
	// SessionSecret signs the dashboard cookie. A process-local default is
	// used when empty.
	SessionSecret string
	// WatchPath is the SQLite file to watch for out-of-process writes.
	// Empty disables the watcher (postgres, :memory:).
	WatchPath string
	Logger    *slog.Logger
}

// NewServer creates a dashboard server.
func NewServer(cfg Config) *Server {
	secret := cfg.SessionSecret
	if secret == "" {
		secret = "depparse-dev-secret-change-in-production"
	}
	sessionStore := sessions.NewCookieStore([]byte(secret))
	sessionStore.MaxAge(86400 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		store:        cfg.Store,
		pipeline:     cfg.Pipeline,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watchPath:    cfg.WatchPath,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Serve starts the dashboard and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dashboard", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchPath != "" {
		eg.Go(func() error {
			return s.watchDatabase(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Routes builds the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	s.setupRoutes(r)
	return r
}

// watchDatabase watches the SQLite file so writes from the CLI show up on
// connected dashboards. The parent directory is watched because SQLite
// replaces the file during WAL checkpoints.
func (s *Server) watchDatabase(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.watchPath)
	if err := watcher.Add(dir); err != nil {
		s.logger.Error("failed to watch database directory", "dir", dir, "error", err)
		return nil
	}

	base := filepath.Base(s.watchPath)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if name != base && name != base+"-wal" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("database changed", "file", event.Name)
				s.notifier.Broadcast()
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
