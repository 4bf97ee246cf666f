package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/TURahim/RAGdemo/internal/embedder"
	"github.com/TURahim/RAGdemo/internal/memory"
	"github.com/TURahim/RAGdemo/internal/rag"
	"github.com/TURahim/RAGdemo/internal/server"
)

// buildVectorStore connects to Qdrant using the QDRANT_* environment
// variables, sizing the collection's vectors for the configured embedding
// backend.
func buildVectorStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "ragdemo-docs")
	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))
	vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store, nil
}

// buildMemory opens the conversation memory store selected by MEMORY_BACKEND
// ("redis" or "sqlite", default redis). The returned pinger probes the store
// for GET /api/ready and is nil for backends without a health check.
func buildMemory(ctx context.Context, log *slog.Logger) (memory.Store, server.Pinger, error) {
	ttl := time.Duration(getEnvInt("MEMORY_TTL_HOURS", 24)) * time.Hour
	maxHistory := getEnvInt("MEMORY_MAX_HISTORY_TURNS", 10)

	backend := getEnvOrDefault("MEMORY_BACKEND", "redis")
	switch backend {
	case "redis":
		addr := fmt.Sprintf("%s:%d", getEnvOrDefault("REDIS_HOST", "localhost"), getEnvInt("REDIS_PORT", 6379))
		store, err := memory.NewRedisStore(ctx, &memory.RedisConfig{
			Addr:       addr,
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         getEnvInt("REDIS_DB", 0),
			TTL:        ttl,
			MaxHistory: maxHistory,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
		}
		log.Info("conversation memory ready", slog.String("backend", "redis"), slog.String("addr", addr))
		return store, server.NewStorePinger("redis", store), nil

	case "sqlite":
		path := getEnvOrDefault("MEMORY_DB_PATH", "ragdemo-memory.db")
		store, err := memory.OpenSQLite(&memory.SQLiteConfig{
			Path:       path,
			TTL:        ttl,
			MaxHistory: maxHistory,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open memory database %s: %w", path, err)
		}
		log.Info("conversation memory ready", slog.String("backend", "sqlite"), slog.String("path", path))
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown MEMORY_BACKEND %q — valid values: redis, sqlite", backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
