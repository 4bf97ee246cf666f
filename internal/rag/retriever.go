package rag

import (
	"context"
	"fmt"
)

// Default retrieval parameters, matching the service configuration defaults.
const (
	// DefaultTopK is the number of chunks returned when none is configured.
	DefaultTopK = 5

	// DefaultScoreThreshold is the minimum similarity score a candidate must
	// reach to be kept.
	DefaultScoreThreshold = 0.3
)

// RetrieverOptions configures a PermissionRetriever.
type RetrieverOptions struct {
	// Permission scopes the search to the caller's entity allow-list.
	Permission Permission

	// TopK is the maximum number of chunks to return (default 5).
	TopK int

	// ScoreThreshold is the minimum similarity score to keep a candidate
	// (default 0.3). Candidates below it are discarded after the search.
	ScoreThreshold float32
}

// PermissionRetriever embeds the query, searches the vector store restricted
// to the caller's allow-list, and keeps only candidates above the similarity
// threshold. It performs no retries; backend errors propagate to the caller.
type PermissionRetriever struct {
	embedder       Embedder
	store          VectorStore
	perm           Permission
	topK           int
	scoreThreshold float32
}

// NewPermissionRetriever constructs a PermissionRetriever from the given
// embedder and vector store.
func NewPermissionRetriever(embedder Embedder, store VectorStore, opts RetrieverOptions) (*PermissionRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := opts.ScoreThreshold
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}
	return &PermissionRetriever{
		embedder:       embedder,
		store:          store,
		perm:           opts.Permission,
		topK:           topK,
		scoreThreshold: threshold,
	}, nil
}

// Retrieve embeds the query and returns the top-k chunks above the score
// threshold, in the backend's ranking order. The store is asked for twice
// top-k candidates so that threshold filtering does not starve the final
// count. An empty result — no candidates, or none above the threshold —
// is returned as an empty slice with a nil error.
func (r *PermissionRetriever) Retrieve(ctx context.Context, query string) ([]Chunk, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	// Over-fetch so post-filtering still has enough candidates to fill topK.
	candidates, err := r.store.Search(ctx, embeddings[0], r.topK*2, r.perm)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	kept := make([]Chunk, 0, r.topK)
	for _, c := range candidates {
		if len(kept) >= r.topK {
			break
		}
		if c.Metadata.RelevanceScore < r.scoreThreshold {
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

// TopK returns the configured result cap.
func (r *PermissionRetriever) TopK() int { return r.topK }
