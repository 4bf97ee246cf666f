package memory

import (
	"context"
	"testing"
)

func Test_Key_String(t *testing.T) {
	t.Parallel()

	k := Key{UserID: 12, SessionID: "abc"}
	if got, want := k.String(), "ai:chat:12:abc"; got != want {
		t.Errorf("key: want %q, got %q", want, got)
	}
}

func Test_FormatHistory_EmptyReturnsSentinel(t *testing.T) {
	t.Parallel()

	if got := FormatHistory(nil); got != NoHistory {
		t.Errorf("want %q, got %q", NoHistory, got)
	}
	if got := FormatHistory([]Message{}); got != NoHistory {
		t.Errorf("want %q, got %q", NoHistory, got)
	}
}

func Test_FormatHistory_RendersSpeakers(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleUser, Content: "what is the CAPA process?"},
		{Role: RoleAssistant, Content: "See SOP QA-104."},
		// Unknown roles render as Assistant, mirroring the storage contract.
		{Role: Role("system"), Content: "noted"},
	}

	want := "Human: what is the CAPA process?\nAssistant: See SOP QA-104.\nAssistant: noted"
	if got := FormatHistory(msgs); got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func Test_HistoryText_UsesStoreHistory(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 10)
	ctx := context.Background()
	key := Key{UserID: 7, SessionID: "s"}

	got, err := HistoryText(ctx, s, key)
	if err != nil {
		t.Fatalf("history text: %v", err)
	}
	if got != NoHistory {
		t.Errorf("empty conversation: want %q, got %q", NoHistory, got)
	}

	if err := s.Append(ctx, key, RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err = HistoryText(ctx, s, key)
	if err != nil {
		t.Fatalf("history text: %v", err)
	}
	if got != "Human: hello" {
		t.Errorf("want %q, got %q", "Human: hello", got)
	}
}
