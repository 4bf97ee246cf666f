// Package assistant composes retrieval, context assembly, conversation
// memory, and the chat model into the SOP assistant's query pipeline. One
// Assistant serves many concurrent requests; all per-request state (the
// permission-scoped retriever, retrieved chunks) lives on the stack of a
// single Query call.
package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/TURahim/RAGdemo/internal/memory"
	"github.com/TURahim/RAGdemo/internal/rag"
)

// ChatModel is the slice of the eino model interface the assistant needs:
// one synchronous completion per query. Eino chat models satisfy it; tests
// inject a fake.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config holds the dependencies and tuning for an Assistant. All clients are
// constructed by the caller and injected — the assistant never reaches for
// ambient singletons, which keeps fakes trivial in tests.
type Config struct {
	// Embedder converts query text to a vector for retrieval.
	Embedder rag.Embedder

	// VectorStore is the chunk search backend.
	VectorStore rag.VectorStore

	// ChatModel produces the grounded answer.
	ChatModel ChatModel

	// Memory is the per-session conversation store.
	Memory memory.Store

	// TopK caps the number of retrieved chunks per query (default 5).
	TopK int

	// ScoreThreshold is the minimum relevance score for a retrieved chunk
	// (default 0.3).
	ScoreThreshold float32
}

// Assistant is the query orchestrator.
type Assistant struct {
	embedder       rag.Embedder
	store          rag.VectorStore
	chatModel      ChatModel
	memory         memory.Store
	topK           int
	scoreThreshold float32
}

// Request carries one chat query and the caller's retrieval scope.
type Request struct {
	// Query is the user's natural-language question.
	Query string
	// UserID identifies the user for conversation memory.
	UserID int64
	// SessionID identifies the conversation for memory.
	SessionID string
	// AllowedEntityIDs is the caller's pre-computed document allow-list.
	// Empty means no restriction is applied.
	AllowedEntityIDs []int64
}

// QueryResult is the fully-formed outcome of one query. It is returned once
// and never persisted.
type QueryResult struct {
	// Answer is the model's grounded answer text.
	Answer string `json:"answer"`
	// Citations lists the source documents, unique by entity, in retrieval
	// order.
	Citations []Citation `json:"citations"`
	// Confidence is the mean relevance score of the retrieved chunks.
	Confidence float64 `json:"confidence"`
}

// New constructs an Assistant from the provided Config. Every dependency is
// required; a nil client is a configuration error caught at startup rather
// than on the first request.
func New(cfg *Config) (*Assistant, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("assistant: Embedder must not be nil")
	}
	if cfg.VectorStore == nil {
		return nil, fmt.Errorf("assistant: VectorStore must not be nil")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("assistant: ChatModel must not be nil")
	}
	if cfg.Memory == nil {
		return nil, fmt.Errorf("assistant: Memory must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	threshold := cfg.ScoreThreshold
	if threshold <= 0 {
		threshold = rag.DefaultScoreThreshold
	}

	return &Assistant{
		embedder:       cfg.Embedder,
		store:          cfg.VectorStore,
		chatModel:      cfg.ChatModel,
		memory:         cfg.Memory,
		topK:           topK,
		scoreThreshold: threshold,
	}, nil
}

// Query runs one request through the full pipeline: permission-scoped
// retrieval, context assembly, history injection, model completion, memory
// update, and citation/confidence extraction. The steps are strictly
// sequential; no step is retried, and any failure aborts the whole call —
// a partial QueryResult is never returned.
//
// The turn is recorded in memory unconditionally, even when the model's
// answer is a "no information" response. A memory write failure after a
// successful completion fails the call: the caller sees one consistent
// outcome rather than an answer whose history silently vanished.
func (a *Assistant) Query(ctx context.Context, req Request) (*QueryResult, error) {
	retriever, err := rag.NewPermissionRetriever(a.embedder, a.store, rag.RetrieverOptions{
		Permission:     rag.RestrictedTo(req.AllowedEntityIDs),
		TopK:           a.topK,
		ScoreThreshold: a.scoreThreshold,
	})
	if err != nil {
		return nil, err
	}

	chunks, err := retriever.Retrieve(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	contextBlock := BuildContext(chunks)

	key := memory.Key{UserID: req.UserID, SessionID: req.SessionID}
	historyText, err := memory.HistoryText(ctx, a.memory, key)
	if err != nil {
		return nil, fmt.Errorf("assistant: load history: %w", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(renderQAPrompt(contextBlock, historyText, req.Query)),
	}

	resp, err := a.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("assistant: model invocation: %w", err)
	}
	answer := resp.Content

	if err := a.memory.Append(ctx, key, memory.RoleUser, req.Query); err != nil {
		return nil, fmt.Errorf("assistant: record user turn: %w", err)
	}
	if err := a.memory.Append(ctx, key, memory.RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("assistant: record assistant turn: %w", err)
	}

	return &QueryResult{
		Answer:     answer,
		Citations:  ExtractCitations(chunks),
		Confidence: Confidence(chunks),
	}, nil
}

// ClearSession deletes the conversation memory for the key. Clearing a
// session that never existed is a no-op.
func (a *Assistant) ClearSession(ctx context.Context, key memory.Key) error {
	return a.memory.Clear(ctx, key)
}
