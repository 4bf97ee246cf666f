// Package indexer implements the document indexing pipeline. It receives
// pre-split document chunks, embeds them, and upserts the results into the
// vector store, replacing whatever was previously indexed for the entity.
// Splitting documents into chunks is the caller's job.
// This pipeline is invoked by POST /api/index and the `ragdemo index` CLI
// command.
package indexer

import (
	"context"
	"fmt"

	"github.com/TURahim/RAGdemo/internal/rag"
)

// Entity identifies the document being indexed.
type Entity struct {
	// ID is the numeric identifier of the document.
	ID int64

	// Type is the document kind (e.g. "page", "policy").
	Type string
}

// SourceChunk is one pre-split fragment of a document.
type SourceChunk struct {
	// Text is the chunk content to embed and store.
	Text string

	// ChunkIndex is the position of the chunk within the document.
	ChunkIndex int

	// Title is the document title carried into the chunk payload.
	Title string

	// Department is the owning department carried into the chunk payload.
	Department string
}

// Config holds the configuration for the indexing pipeline.
type Config struct {
	// BatchSize is the maximum number of chunks embedded and upserted per
	// round trip. Defaults to 100 if zero.
	BatchSize int
}

// Pipeline orchestrates the delete → embed → upsert flow for one entity at a
// time.
type Pipeline struct {
	// embedder converts chunk texts into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// batchSize is the resolved per-round-trip chunk limit.
	batchSize int
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("indexer: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("indexer: store must not be nil")
	}
	batchSize := 100
	if cfg != nil && cfg.BatchSize > 0 {
		batchSize = cfg.BatchSize
	}

	return &Pipeline{
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
	}, nil
}

// Index replaces the entity's vectors with embeddings of the given chunks.
// Existing vectors for the entity are deleted first; an entity with nothing
// indexed yet is not an error. Chunks are embedded and upserted in batches.
// Returns the number of chunks indexed.
func (p *Pipeline) Index(ctx context.Context, entity Entity, chunks []SourceChunk) (int, error) {
	if entity.ID == 0 {
		return 0, fmt.Errorf("indexer: entity id must not be zero")
	}
	if entity.Type == "" {
		return 0, fmt.Errorf("indexer: entity type must not be empty")
	}

	if err := p.store.DeleteEntity(ctx, entity.Type, entity.ID); err != nil {
		return 0, fmt.Errorf("indexer: delete existing vectors for %s %d: %w", entity.Type, entity.ID, err)
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("indexer: embedding failed for %s %d: %w", entity.Type, entity.ID, err)
		}
		if len(embeddings) != len(batch) {
			return 0, fmt.Errorf("indexer: expected %d embeddings, got %d", len(batch), len(embeddings))
		}

		points := make([]rag.UpsertChunk, len(batch))
		for i, c := range batch {
			points[i] = rag.UpsertChunk{
				Chunk: rag.Chunk{
					Text: c.Text,
					Metadata: rag.Metadata{
						EntityID:   entity.ID,
						EntityType: entity.Type,
						Title:      c.Title,
						Department: c.Department,
						ChunkIndex: c.ChunkIndex,
					},
				},
				Embedding: embeddings[i],
			}
		}

		if err := p.store.Upsert(ctx, points); err != nil {
			return 0, fmt.Errorf("indexer: upsert failed for %s %d: %w", entity.Type, entity.ID, err)
		}
	}

	return len(chunks), nil
}
