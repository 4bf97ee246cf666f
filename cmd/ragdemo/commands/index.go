package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TURahim/RAGdemo/internal/embedder"
	"github.com/TURahim/RAGdemo/internal/indexer"
	"github.com/TURahim/RAGdemo/internal/logging"
)

// indexFile is the JSON document accepted by `ragdemo index`. It mirrors the
// body of POST /api/index so the same chunk exports work through either path.
type indexFile struct {
	EntityID   int64  `json:"entity_id"`
	EntityType string `json:"entity_type"`
	Chunks     []struct {
		Text     string `json:"text"`
		Metadata struct {
			ChunkIndex int    `json:"chunk_index"`
			Title      string `json:"title"`
			Department string `json:"department"`
		} `json:"metadata"`
	} `json:"chunks"`
}

// NewIndexCmd constructs the `ragdemo index` command, which indexes a
// pre-chunked document from a JSON file into the vector store.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [file...]",
		Short: "Index pre-chunked documents into the vector store",
		Long: `Index one or more pre-chunked documents into the Qdrant vector store.

Each file is a JSON document with the same shape as the POST /api/index
request body: an entity_id, an entity_type, and a list of pre-split chunks
with their metadata. Existing vectors for the entity are replaced, so
re-running index on an updated export never leaves stale chunks behind.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: ragdemo-docs)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  ragdemo index page-42.json
  ragdemo index exports/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("index: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("index: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))))

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer store.Close()

			pipeline, err := indexer.NewPipeline(emb, store, nil)
			if err != nil {
				return fmt.Errorf("index: failed to create pipeline: %w", err)
			}

			for _, path := range args {
				data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's own CLI args
				if err != nil {
					return fmt.Errorf("index: read %s: %w", path, err)
				}

				var doc indexFile
				if err := json.Unmarshal(data, &doc); err != nil {
					return fmt.Errorf("index: parse %s: %w", path, err)
				}

				chunks := make([]indexer.SourceChunk, 0, len(doc.Chunks))
				for _, c := range doc.Chunks {
					chunks = append(chunks, indexer.SourceChunk{
						Text:       c.Text,
						ChunkIndex: c.Metadata.ChunkIndex,
						Title:      c.Metadata.Title,
						Department: c.Metadata.Department,
					})
				}

				count, err := pipeline.Index(ctx, indexer.Entity{ID: doc.EntityID, Type: doc.EntityType}, chunks)
				if err != nil {
					return fmt.Errorf("index: %s: %w", path, err)
				}
				log.Info("document indexed",
					slog.String("file", path),
					slog.String("entity_type", doc.EntityType),
					slog.Int64("entity_id", doc.EntityID),
					slog.Int("chunks", count),
				)
			}

			log.Info("indexing complete", slog.Int("documents", len(args)))
			return nil
		},
	}

	return cmd
}
