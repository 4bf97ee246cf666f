package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/TURahim/RAGdemo/internal/rag"
)

// fakeEmbedder records batch sizes and returns one distinct vector per text.
type fakeEmbedder struct {
	batches [][]string
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(f.batches)), float32(i)}
	}
	return out, nil
}

// fakeStore records the call sequence so tests can assert delete-before-upsert.
type fakeStore struct {
	calls     []string
	upserted  []rag.UpsertChunk
	deleteErr error
	upsertErr error
}

func (f *fakeStore) Search(context.Context, []float32, int, rag.Permission) ([]rag.Chunk, error) {
	return nil, nil
}

func (f *fakeStore) Upsert(_ context.Context, points []rag.UpsertChunk) error {
	f.calls = append(f.calls, fmt.Sprintf("upsert(%d)", len(points)))
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeStore) DeleteEntity(_ context.Context, entityType string, entityID int64) error {
	f.calls = append(f.calls, fmt.Sprintf("delete(%s,%d)", entityType, entityID))
	return f.deleteErr
}

func (f *fakeStore) Close() error { return nil }

func chunks(n int) []SourceChunk {
	out := make([]SourceChunk, n)
	for i := range out {
		out[i] = SourceChunk{
			Text:       fmt.Sprintf("chunk %d", i),
			ChunkIndex: i,
			Title:      "Expense Policy",
			Department: "Finance",
		}
	}
	return out
}

func Test_Index_DeletesBeforeUpserting(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p, err := NewPipeline(&fakeEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	n, err := p.Index(context.Background(), Entity{ID: 42, Type: "page"}, chunks(3))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if n != 3 {
		t.Errorf("want 3 chunks indexed, got %d", n)
	}

	want := []string{"delete(page,42)", "upsert(3)"}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	for i := range want {
		if store.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, store.calls[i], want[i])
		}
	}
}

func Test_Index_BatchesLargeDocuments(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	store := &fakeStore{}
	p, err := NewPipeline(emb, store, &Config{BatchSize: 2})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	n, err := p.Index(context.Background(), Entity{ID: 7, Type: "page"}, chunks(5))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if n != 5 {
		t.Errorf("want 5 chunks indexed, got %d", n)
	}

	if len(emb.batches) != 3 {
		t.Fatalf("want 3 embed batches (2+2+1), got %d", len(emb.batches))
	}
	if len(emb.batches[2]) != 1 {
		t.Errorf("final batch size = %d, want 1", len(emb.batches[2]))
	}
	if len(store.upserted) != 5 {
		t.Fatalf("want 5 points upserted, got %d", len(store.upserted))
	}
}

func Test_Index_CarriesMetadataIntoPayload(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p, err := NewPipeline(&fakeEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := p.Index(context.Background(), Entity{ID: 9, Type: "policy"}, chunks(2)); err != nil {
		t.Fatalf("index: %v", err)
	}

	for i, pt := range store.upserted {
		md := pt.Chunk.Metadata
		if md.EntityID != 9 || md.EntityType != "policy" {
			t.Errorf("point %d: entity = %s/%d, want policy/9", i, md.EntityType, md.EntityID)
		}
		if md.ChunkIndex != i {
			t.Errorf("point %d: chunk_index = %d, want %d", i, md.ChunkIndex, i)
		}
		if md.Title != "Expense Policy" || md.Department != "Finance" {
			t.Errorf("point %d: title/department not carried: %+v", i, md)
		}
		if len(pt.Embedding) == 0 {
			t.Errorf("point %d: missing embedding", i)
		}
	}
}

func Test_Index_ZeroChunksStillClearsEntity(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p, err := NewPipeline(&fakeEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	n, err := p.Index(context.Background(), Entity{ID: 1, Type: "page"}, nil)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if n != 0 {
		t.Errorf("want 0 chunks, got %d", n)
	}
	if len(store.calls) != 1 || store.calls[0] != "delete(page,1)" {
		t.Errorf("calls = %v, want only the delete", store.calls)
	}
}

func Test_Index_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	deleteErr := errors.New("qdrant unreachable")
	embedErr := errors.New("embedding api down")
	upsertErr := errors.New("upsert rejected")

	tests := []struct {
		name  string
		emb   *fakeEmbedder
		store *fakeStore
		want  error
	}{
		{"delete fails", &fakeEmbedder{}, &fakeStore{deleteErr: deleteErr}, deleteErr},
		{"embed fails", &fakeEmbedder{err: embedErr}, &fakeStore{}, embedErr},
		{"upsert fails", &fakeEmbedder{}, &fakeStore{upsertErr: upsertErr}, upsertErr},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPipeline(tc.emb, tc.store, nil)
			if err != nil {
				t.Fatalf("new pipeline: %v", err)
			}
			_, err = p.Index(context.Background(), Entity{ID: 3, Type: "page"}, chunks(2))
			if !errors.Is(err, tc.want) {
				t.Errorf("want %v in chain, got %v", tc.want, err)
			}
		})
	}
}

func Test_Index_RejectsInvalidEntity(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(&fakeEmbedder{}, &fakeStore{}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := p.Index(context.Background(), Entity{Type: "page"}, chunks(1)); err == nil {
		t.Error("want error for zero entity id")
	}
	if _, err := p.Index(context.Background(), Entity{ID: 1}, chunks(1)); err == nil {
		t.Error("want error for empty entity type")
	}
}

func Test_NewPipeline_RejectsNilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, &fakeStore{}, nil); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewPipeline(&fakeEmbedder{}, nil, nil); err == nil {
		t.Error("want error for nil store")
	}
}
