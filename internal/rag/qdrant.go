package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload field names used in the Qdrant collection. The text of the chunk
// lives alongside its metadata so a search returns everything needed to
// ground an answer without a second lookup.
const (
	payloadText       = "text"
	payloadEntityID   = "entity_id"
	payloadEntityType = "entity_type"
	payloadTitle      = "title"
	payloadDepartment = "department"
	payloadChunkIndex = "chunk_index"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
type QdrantStore struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// NewQdrantStore creates a QdrantStore, ensuring the target collection exists
// (creating it with cosine distance if necessary).
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// permissionFilter translates a Permission into a Qdrant payload filter.
// Unrestricted permissions produce no filter at all.
func permissionFilter(perm Permission) *qdrant.Filter {
	if !perm.Restricted() {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchInts(payloadEntityID, perm.AllowedIDs()...),
		},
	}
}

// Search performs a cosine similarity search restricted by perm and returns
// up to limit chunks in descending score order. Each chunk's
// Metadata.RelevanceScore carries the backend similarity score.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, limit int, perm Permission) ([]Chunk, error) {
	l := uint64(limit)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &l,
		Filter:         permissionFilter(perm),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		c := Chunk{Metadata: Metadata{RelevanceScore: r.Score}}
		if p := r.Payload; p != nil {
			if v, ok := p[payloadText]; ok {
				c.Text = v.GetStringValue()
			}
			if v, ok := p[payloadEntityID]; ok {
				c.Metadata.EntityID = v.GetIntegerValue()
			}
			if v, ok := p[payloadEntityType]; ok {
				c.Metadata.EntityType = v.GetStringValue()
			}
			if v, ok := p[payloadTitle]; ok {
				c.Metadata.Title = v.GetStringValue()
			}
			if v, ok := p[payloadDepartment]; ok {
				c.Metadata.Department = v.GetStringValue()
			}
			if v, ok := p[payloadChunkIndex]; ok {
				c.Metadata.ChunkIndex = int(v.GetIntegerValue())
			}
		}
		chunks = append(chunks, c)
	}

	return chunks, nil
}

// PointID returns the deterministic Qdrant point ID for a chunk. Qdrant only
// accepts UUIDs or unsigned integers, so the human-readable name
// "{entity_type}_{entity_id}_{chunk_index}" is mapped to a stable UUID.
// Re-indexing the same chunk overwrites its previous point.
func PointID(entityType string, entityID int64, chunkIndex int) string {
	name := fmt.Sprintf("%s_%d_%d", entityType, entityID, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Upsert stores or updates a batch of embedded chunks. Embeddings must be
// pre-computed; this method never calls the Embedder.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []UpsertChunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, uc := range chunks {
		m := uc.Chunk.Metadata
		payload := map[string]any{
			payloadText:       uc.Chunk.Text,
			payloadEntityID:   m.EntityID,
			payloadEntityType: m.EntityType,
			payloadTitle:      m.Title,
			payloadDepartment: m.Department,
			payloadChunkIndex: m.ChunkIndex,
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(m.EntityType, m.EntityID, m.ChunkIndex)),
			Vectors: qdrant.NewVectors(uc.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// DeleteEntity removes all points belonging to the given source entity.
// An entity with no indexed points deletes cleanly.
func (s *QdrantStore) DeleteEntity(ctx context.Context, entityType string, entityID int64) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchInt(payloadEntityID, entityID),
			qdrant.NewMatchKeyword(payloadEntityType, entityType),
		},
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete entity %s/%d failed: %w", entityType, entityID, err)
	}

	return nil
}

// Ping checks Qdrant reachability via its native health check RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Client exposes the underlying Qdrant client for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
