// Package rag defines the retrieval core of the SOP assistant: the chunk
// data model, permission scoping, and the interfaces for vector storage and
// embedding. Concrete backends (Qdrant, OpenAI/Ollama embedders) satisfy
// these interfaces so the assistant layer never depends on a specific vendor.
package rag

import (
	"context"
)

// Metadata describes the source document a chunk belongs to.
// Title and Department may be empty when the indexed payload omitted them;
// consumers apply their own documented defaults rather than this package
// guessing one for everyone.
type Metadata struct {
	// EntityID is the identifier of the source document (page). Zero means
	// the chunk was indexed without a source reference.
	EntityID int64

	// EntityType is the kind of source entity (e.g. "page").
	EntityType string

	// Title is the source document title.
	Title string

	// Department is the owning department of the source document.
	Department string

	// ChunkIndex is the position of this chunk within its source document.
	ChunkIndex int

	// RelevanceScore is the similarity score stamped by the retriever after
	// a search. Chunks that never went through retrieval carry zero.
	RelevanceScore float32
}

// Chunk is one scored fragment of a source document. Chunks are created
// fresh per retrieval call and discarded after one query cycle; they are
// never persisted by this package.
type Chunk struct {
	// Text is the chunk body used for grounding.
	Text string

	// Metadata identifies and describes the source document.
	Metadata Metadata
}

// UpsertChunk pairs a chunk with its pre-computed embedding for indexing.
type UpsertChunk struct {
	// Chunk is the chunk to store.
	Chunk Chunk

	// Embedding is the dense vector for Chunk.Text.
	Embedding []float32
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Search returns up to limit chunks ordered by descending similarity to
	// the query embedding, restricted by perm. Each returned chunk carries
	// the backend's similarity score in Metadata.RelevanceScore.
	Search(ctx context.Context, queryEmbedding []float32, limit int, perm Permission) ([]Chunk, error)

	// Upsert stores or updates a batch of embedded chunks.
	Upsert(ctx context.Context, chunks []UpsertChunk) error

	// DeleteEntity removes every chunk belonging to the given source entity.
	// Deleting an entity with no indexed chunks is not an error.
	DeleteEntity(ctx context.Context, entityType string, entityID int64) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the chunks most relevant to a query, already filtered
// by permission and relevance threshold.
type Retriever interface {
	// Retrieve returns relevant chunks in descending relevance order.
	// An empty result is a valid outcome, not an error.
	Retrieve(ctx context.Context, query string) ([]Chunk, error)
}
