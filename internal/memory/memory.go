// Package memory provides per-session conversation memory for the assistant.
// Each (user, session) pair owns one bounded, expiring message log. The
// production backend is a Redis list; a SQLite backend implements the same
// contract for local development without a Redis instance.
//
// Concurrent appends for the same key are not serialized: two simultaneous
// requests on one session can interleave their user/assistant pairs out of
// order. Same-session concurrency is assumed rare for a single human user,
// so this is accepted rather than paid for with per-key locking.
package memory

import (
	"context"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a message sent by the human operator.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
)

// Key identifies one conversation. Messages are owned exclusively by their
// key and never shared across sessions.
type Key struct {
	// UserID is the numeric identifier of the user.
	UserID int64
	// SessionID is the opaque session identifier chosen by the client.
	SessionID string
}

// String renders the storage key, e.g. "ai:chat:12:abc".
func (k Key) String() string {
	return fmt.Sprintf("ai:chat:%d:%s", k.UserID, k.SessionID)
}

// Message is a single turn in a conversation.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the text of the message.
	Content string `json:"content"`
}

// NoHistory is the exact text returned for an empty conversation. The QA
// prompt's instructions reference this state, so the wording is a contract.
const NoHistory = "No previous conversation."

// Store persists bounded conversation history per key.
// Implementations must be safe for concurrent use across different keys;
// see the package comment for same-key concurrency semantics.
// Backend failures propagate to the caller unwrapped of retries.
type Store interface {
	// Append adds one message, refreshes the key's expiry, and trims the log
	// to the most recent maxHistory*2 entries (a turn is user+assistant).
	Append(ctx context.Context, key Key, role Role, content string) error

	// History returns up to the most recent maxHistory*2 messages, oldest
	// first. A missing key yields an empty slice, not an error.
	History(ctx context.Context, key Key) ([]Message, error)

	// Clear deletes all messages for the key. Clearing an absent key is a
	// no-op.
	Clear(ctx context.Context, key Key) error

	// Close releases any resources held by the store.
	Close() error
}

// HistoryText renders the key's history for prompt injection: one
// "Human: ..." or "Assistant: ..." line per message, or NoHistory when the
// conversation is empty. RoleUser renders as "Human"; any other role renders
// as "Assistant".
func HistoryText(ctx context.Context, s Store, key Key) (string, error) {
	msgs, err := s.History(ctx, key)
	if err != nil {
		return "", err
	}
	return FormatHistory(msgs), nil
}

// FormatHistory renders messages into the prompt history block.
func FormatHistory(msgs []Message) string {
	if len(msgs) == 0 {
		return NoHistory
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speaker := "Assistant"
		if m.Role == RoleUser {
			speaker = "Human"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
