package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// pingable is satisfied by any store that can report its own reachability,
// e.g. *memory.RedisStore or *rag.QdrantStore.
type pingable interface {
	Ping(ctx context.Context) error
}

// StorePinger adapts a backing store's Ping method to the Pinger interface.
// Used for the Redis conversation memory, whose client is owned by the store.
type StorePinger struct {
	// name identifies the store in readiness responses (e.g. "redis").
	name string
	// store is the probed backing store.
	store pingable
}

// NewStorePinger constructs a StorePinger with the given label.
func NewStorePinger(name string, store pingable) *StorePinger {
	return &StorePinger{name: name, store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping delegates to the underlying store.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
