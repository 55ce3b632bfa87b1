// Package server implements the thin HTTP transport exposing the core
// pipeline's external operations (§6): generate, generate_stream, search,
// verify, and the history endpoints. The transport does no business logic
// of its own — every handler is a thin adapter over the orchestrator, the
// hybrid searcher, the verifier, and the history store.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/config"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/history"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/pipeline"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/search"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/sse"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/verify"
)

// Server is the HTTP transport over the generation pipeline.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     config.Server
	log        *slog.Logger

	orchestrator *pipeline.Orchestrator
	searcher     *search.Searcher
	verifier     *verify.Verifier
	history      *history.Store
}

// New builds a Server wired to the given pipeline components.
func New(cfg config.Server, orchestrator *pipeline.Orchestrator, searcher *search.Searcher, verifier *verify.Verifier, hist *history.Store) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		config:       cfg,
		log:          logger.Get(),
		orchestrator: orchestrator,
		searcher:     searcher,
		verifier:     verifier,
		history:      hist,
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	// generate_stream can legitimately run for the full request timeout, so
	// the blanket request timeout is intentionally generous rather than the
	// per-call 60s used inside the pipeline.
	s.router.Use(middleware.Timeout(10 * time.Minute))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/generate_stream", s.handleGenerateStream)
		r.Get("/search", s.handleSearch)
		r.Post("/verify", s.handleVerify)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleHistoryList)
			r.Get("/{id}", s.handleHistoryGet)
			r.Delete("/{id}", s.handleHistoryDelete)
		})
	})
}

// Start runs the HTTP server until it is stopped or fails.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router exposes the chi router for testing.
func (s *Server) Router() *chi.Mux { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	InputMaterial string `json:"input_material"`
	ArticleType   string `json:"article_type"`
}

// handleGenerate implements the generate() external operation: synchronous.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	markdown, draftID, err := s.orchestrator.Generate(r.Context(), req.InputMaterial, req.ArticleType)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"markdown": markdown, "draft_id": draftID})
}

// handleGenerateStream implements the generate_stream() external operation:
// an SSE stream over the orchestrator's progress events.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	inputMaterial := r.URL.Query().Get("input_material")
	articleType := r.URL.Query().Get("article_type")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	emit := sse.NewEmitter(len(core.StageOrder) + 1)
	go s.orchestrator.GenerateStream(r.Context(), inputMaterial, articleType, emit)

	if err := sse.WriteTo(w, flush, emit.Events(), func(v any) ([]byte, error) { return json.Marshal(v) }); err != nil {
		s.log.Warn("generate_stream: write failed", "error", err)
	}
}

// handleSearch implements the search() external operation, exposing C4 directly.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	category := core.ArticleType(q.Get("article_type"))
	k, _ := strconv.Atoi(q.Get("k"))

	passages, err := s.searcher.Search(r.Context(), query, category, search.Params{KPerSource: 20, FinalK: maxOr(k, 10), RRFK: 60})
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"passages": passages})
}

type verifyRequest struct {
	DraftText   string `json:"draft_text"`
	ArticleType string `json:"article_type"`
}

// handleVerify implements the verify() external operation, exposing C8's
// style-check and hallucination-detection sub-ops over caller-supplied text
// with no rulebook or reference passages of its own.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	draft := core.Draft{Lead: req.DraftText}
	s.verifier.Run(r.Context(), &draft, "", nil)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"consistency_score":       draft.ConsistencyScore,
		"verification_confidence": draft.VerificationConfidence,
		"tag_count":               draft.TagCount,
	})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	drafts, err := s.history.List(r.Context(), maxOr(limit, 20), offset)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	draft, err := s.history.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.history.Delete(r.Context(), id); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"kind": core.Kind(err), "message": err.Error()})
}

func statusFor(err error) int {
	switch core.Kind(err) {
	case "not_found":
		return http.StatusNotFound
	case "schema", "invariant":
		return http.StatusUnprocessableEntity
	case "timeout":
		return http.StatusGatewayTimeout
	case "cancelled":
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

func maxOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
