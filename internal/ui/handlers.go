package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/nlpstack/depparse/internal/model"
	"github.com/nlpstack/depparse/internal/normalize"
	"github.com/nlpstack/depparse/internal/pipeline"
	"github.com/nlpstack/depparse/internal/store"
	"github.com/nlpstack/depparse/internal/ui/resources"
)

const sessionName = "depparse"

func (s *Server) setupRoutes(r chi.Router) {
	r.Get("/", s.indexHandler)
	r.Handle("/static/*", resources.Handler())

	r.Post("/api/parse", s.parseHandler)
	r.Get("/api/sentences", s.listSentencesHandler)
	r.Get("/api/sentences/{id}", s.getSentenceHandler)
	r.Get("/api/stats", s.statsHandler)

	r.Get("/updates", s.updatesHandler)
	r.Get("/healthz", s.healthHandler)
}

func (s *Server) indexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(resources.Index())
}

// parseRequest is the POST /api/parse body.
type parseRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Models   []string `json:"models"`
	Save     bool     `json:"save"`
}

func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Fall back to the model selection remembered in the session.
	session, _ := s.sessionStore.Get(r, sessionName)
	if len(req.Models) == 0 {
		if saved, ok := session.Values["models"].(string); ok && saved != "" {
			req.Models = strings.Split(saved, ",")
		}
	} else {
		session.Values["models"] = strings.Join(req.Models, ",")
		_ = session.Save(r, w)
	}

	res, err := s.pipeline.Run(r.Context(), pipeline.Request{
		Text:     req.Text,
		Language: req.Language,
		Models:   req.Models,
		Save:     req.Save,
	})
	if err != nil {
		writeParseError(w, err)
		return
	}

	if req.Save {
		s.notifier.Broadcast()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listSentencesHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	sentences, err := s.store.ListSentences(r.Context(), limit, offset)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sentences == nil {
		sentences = []*store.Sentence{}
	}
	writeJSON(w, http.StatusOK, sentences)
}

func (s *Server) getSentenceHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sent, err := s.store.GetSentence(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sent == nil {
		writeError(w, http.StatusNotFound, "sentence not found")
		return
	}

	deps, err := s.store.ListDependencies(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if deps == nil {
		deps = []*store.Dependency{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sentence":     sent,
		"dependencies": deps,
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.AggregateStats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// statsSignals is pushed to connected dashboards over SSE.
type statsSignals struct {
	SentenceCount   int64 `json:"sentenceCount"`
	DependencyCount int64 `json:"dependencyCount"`
}

// updatesHandler is the long-lived SSE endpoint. It pushes fresh counts on
// connect and again after every store change.
func (s *Server) updatesHandler(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	if err := s.pushStats(sse, r); err != nil {
		_ = sse.ConsoleError(err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := s.pushStats(sse, r); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (s *Server) pushStats(sse *datastar.ServerSentEventGenerator, r *http.Request) error {
	stats, err := s.store.AggregateStats(r.Context())
	if err != nil {
		return err
	}
	return sse.MarshalAndPatchSignals(statsSignals{
		SentenceCount:   stats.SentenceCount,
		DependencyCount: stats.DependencyCount,
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.AggregateStats(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeParseError maps pipeline failures to HTTP statuses: invalid input is
// the client's fault, an unreachable model is a bad gateway, storage trouble
// is internal.
func writeParseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, normalize.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrModelUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, store.ErrIntegrity), errors.Is(err, store.ErrStorageUnavailable):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
