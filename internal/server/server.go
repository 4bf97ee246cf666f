// Package server implements the HTTP server that exposes the RAG assistant
// via a REST API: chat, document indexing, session management, and the usual
// operational endpoints. The server is started by the `ragdemo serve` CLI
// command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TURahim/RAGdemo/internal/assistant"
	"github.com/TURahim/RAGdemo/internal/indexer"
	"github.com/TURahim/RAGdemo/internal/logging"
	"github.com/TURahim/RAGdemo/internal/memory"
)

// New constructs a Server from the provided assistant, indexer, deleter, and
// config.
func New(qa querier, idx documentIndexer, del entityDeleter, cfg *Config) (*Server, error) {
	if qa == nil {
		return nil, fmt.Errorf("server: assistant must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("server: indexer must not be nil")
	}
	if del == nil {
		return nil, fmt.Errorf("server: deleter must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full retrieval + generation round trip.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		assistant: qa,
		indexer:   idx,
		deleter:   del,
		cfg:       cfg,
		log:       cfg.Logger,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		cfg.Logger.Warn("server: API key not set — authentication is disabled")
	}

	// protected applies bearer auth, the per-IP rate limit, and HTTP metrics
	// to one logical endpoint.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(s.instrument(name, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", protected("chat", s.handleChat))
	mux.Handle("POST /api/index", protected("index", s.handleIndex))
	mux.Handle("DELETE /api/index/{entity_type}/{entity_id}", protected("index_delete", s.handleIndexDelete))
	mux.Handle("POST /api/clear-session", protected("clear_session", s.handleClearSession))
	mux.Handle("GET /api/health", s.instrument("health", s.handleHealth))
	mux.Handle("GET /api/ready", s.instrument("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat. It runs the full retrieval pipeline and
// returns the grounded answer with citations and a confidence score.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.assistant.Query(r.Context(), assistant.Request{
		Query:            req.Query,
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		AllowedEntityIDs: req.AllowedEntityIDs,
	})
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues("error").Inc()
		s.metrics.chatDurationSeconds.WithLabelValues("error").Observe(elapsed.Seconds())
		log.Error("chat query failed", slog.Any("error", err))
		// Pipeline details (backend addresses, model errors) stay out of the
		// response body.
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.chatDurationSeconds.WithLabelValues("ok").Observe(elapsed.Seconds())
	s.metrics.chatCitedDocuments.Observe(float64(len(res.Citations)))

	writeJSON(w, log, http.StatusOK, res)
}

// handleIndex handles POST /api/index. It replaces the entity's vectors with
// embeddings of the submitted chunks.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EntityID <= 0 {
		http.Error(w, "entity_id is required", http.StatusBadRequest)
		return
	}
	if req.EntityType == "" {
		http.Error(w, "entity_type is required", http.StatusBadRequest)
		return
	}

	chunks := make([]indexer.SourceChunk, len(req.Chunks))
	for i, c := range req.Chunks {
		chunks[i] = indexer.SourceChunk{
			Text:       c.Text,
			ChunkIndex: c.Metadata.ChunkIndex,
			Title:      c.Metadata.Title,
			Department: c.Metadata.Department,
		}
	}

	count, err := s.indexer.Index(r.Context(), indexer.Entity{ID: req.EntityID, Type: req.EntityType}, chunks)
	if err != nil {
		log.Error("indexing failed",
			slog.String("entity_type", req.EntityType),
			slog.Int64("entity_id", req.EntityID),
			slog.Any("error", err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, log, http.StatusOK, indexResponse{
		Status:     "indexed",
		EntityID:   req.EntityID,
		EntityType: req.EntityType,
		ChunkCount: count,
	})
}

// handleIndexDelete handles DELETE /api/index/{entity_type}/{entity_id}.
func (s *Server) handleIndexDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	entityType := r.PathValue("entity_type")
	entityID, err := strconv.ParseInt(r.PathValue("entity_id"), 10, 64)
	if err != nil || entityID <= 0 {
		http.Error(w, "entity_id must be a positive integer", http.StatusBadRequest)
		return
	}

	if err := s.deleter.DeleteEntity(r.Context(), entityType, entityID); err != nil {
		log.Error("delete failed",
			slog.String("entity_type", entityType),
			slog.Int64("entity_id", entityID),
			slog.Any("error", err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, log, http.StatusOK, deleteResponse{
		Status:     "deleted",
		EntityID:   entityID,
		EntityType: entityType,
	})
}

// handleClearSession handles POST /api/clear-session.
func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req clearSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	key := memory.Key{UserID: req.UserID, SessionID: req.SessionID}
	if err := s.assistant.ClearSession(r.Context(), key); err != nil {
		log.Error("clear session failed",
			slog.String("session", key.String()),
			slog.Any("error", err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, log, http.StatusOK, clearSessionResponse{Status: "cleared"})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
