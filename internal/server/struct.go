package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TURahim/RAGdemo/internal/assistant"
	"github.com/TURahim/RAGdemo/internal/indexer"
	"github.com/TURahim/RAGdemo/internal/memory"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all server metric registrations. Defaults to
	// prometheus.DefaultRegisterer. Tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// querier is the interface handleChat and handleClearSession call.
// *assistant.Assistant satisfies it; tests inject a fake.
type querier interface {
	// Query runs the full retrieval pipeline and returns the grounded answer.
	Query(ctx context.Context, req assistant.Request) (*assistant.QueryResult, error)

	// ClearSession deletes the conversation history for the key.
	ClearSession(ctx context.Context, key memory.Key) error
}

// documentIndexer is the interface the index handlers call.
// *indexer.Pipeline satisfies it; tests inject a fake.
type documentIndexer interface {
	// Index replaces the entity's vectors with embeddings of the given chunks.
	Index(ctx context.Context, entity indexer.Entity, chunks []indexer.SourceChunk) (int, error)
}

// entityDeleter is the interface the delete handler calls.
// *rag.QdrantStore satisfies it; tests inject a fake.
type entityDeleter interface {
	// DeleteEntity removes all vectors belonging to the entity.
	DeleteEntity(ctx context.Context, entityType string, entityID int64) error
}

// Server is the HTTP server that exposes the assistant and the indexer.
type Server struct {
	// assistant handles chat queries and session clears.
	assistant querier
	// indexer handles document (re-)indexing.
	indexer documentIndexer
	// deleter handles document removal from the vector index.
	deleter entityDeleter
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus metrics owned by this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
	// UserID identifies the asking user.
	UserID int64 `json:"user_id"`
	// SessionID scopes the conversation memory.
	SessionID string `json:"session_id"`
	// AllowedEntityIDs is the caller's pre-computed document allow-list.
	// Empty means the user may see everything.
	AllowedEntityIDs []int64 `json:"allowed_entity_ids"`
}

// indexChunkMetadata is the per-chunk metadata in an index request.
type indexChunkMetadata struct {
	// ChunkIndex is the position of the chunk within the document.
	ChunkIndex int `json:"chunk_index"`
	// Title is the document title.
	Title string `json:"title"`
	// Department is the owning department.
	Department string `json:"department"`
}

// indexChunk is one pre-split chunk in an index request.
type indexChunk struct {
	// Text is the chunk content.
	Text string `json:"text"`
	// Metadata carries the chunk's payload fields.
	Metadata indexChunkMetadata `json:"metadata"`
}

// indexRequest is the JSON body for POST /api/index.
type indexRequest struct {
	// EntityID is the numeric identifier of the document.
	EntityID int64 `json:"entity_id"`
	// EntityType is the document kind (e.g. "page").
	EntityType string `json:"entity_type"`
	// Chunks is the pre-split document content.
	Chunks []indexChunk `json:"chunks"`
}

// indexResponse is the JSON response for POST /api/index.
type indexResponse struct {
	// Status is "indexed" on success.
	Status string `json:"status"`
	// EntityID echoes the indexed document's identifier.
	EntityID int64 `json:"entity_id"`
	// EntityType echoes the indexed document's kind.
	EntityType string `json:"entity_type"`
	// ChunkCount is the number of chunks indexed.
	ChunkCount int `json:"chunk_count"`
}

// deleteResponse is the JSON response for DELETE /api/index/{entity_type}/{entity_id}.
type deleteResponse struct {
	// Status is "deleted" on success.
	Status string `json:"status"`
	// EntityID echoes the removed document's identifier.
	EntityID int64 `json:"entity_id"`
	// EntityType echoes the removed document's kind.
	EntityType string `json:"entity_type"`
}

// clearSessionRequest is the JSON body for POST /api/clear-session.
type clearSessionRequest struct {
	// UserID identifies the user whose session is cleared.
	UserID int64 `json:"user_id"`
	// SessionID is the session to clear.
	SessionID string `json:"session_id"`
}

// clearSessionResponse is the JSON response for POST /api/clear-session.
type clearSessionResponse struct {
	// Status is "cleared" on success.
	Status string `json:"status"`
}
