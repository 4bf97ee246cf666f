package assistant

import (
	"strings"
	"testing"

	"github.com/TURahim/RAGdemo/internal/rag"
)

func chunk(title, department, text string) rag.Chunk {
	return rag.Chunk{
		Text:     text,
		Metadata: rag.Metadata{EntityID: 1, Title: title, Department: department},
	}
}

func Test_BuildContext_EmptyReturnsSentinel(t *testing.T) {
	t.Parallel()

	if got := BuildContext(nil); got != "No relevant documents found." {
		t.Errorf("want exact sentinel, got %q", got)
	}
	if got := BuildContext([]rag.Chunk{}); got != NoDocuments {
		t.Errorf("want exact sentinel, got %q", got)
	}
}

func Test_BuildContext_SingleChunk(t *testing.T) {
	t.Parallel()

	got := BuildContext([]rag.Chunk{chunk("Cleanroom Entry", "Manufacturing", "Gown before entering.")})
	want := "[Document 1: Cleanroom Entry (Manufacturing)]\nGown before entering."
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func Test_BuildContext_JoinsBlocksInInputOrder(t *testing.T) {
	t.Parallel()

	chunks := []rag.Chunk{
		chunk("Doc A", "QA", "alpha"),
		chunk("Doc B", "HR", "beta"),
		chunk("Doc C", "QA", "gamma"),
	}

	got := BuildContext(chunks)
	blocks := strings.Split(got, "\n\n---\n\n")
	if len(blocks) != 3 {
		t.Fatalf("want 3 blocks, got %d: %q", len(blocks), got)
	}
	wantPrefixes := []string{
		"[Document 1: Doc A (QA)]",
		"[Document 2: Doc B (HR)]",
		"[Document 3: Doc C (QA)]",
	}
	for i, want := range wantPrefixes {
		if !strings.HasPrefix(blocks[i], want) {
			t.Errorf("block %d: want prefix %q, got %q", i, want, blocks[i])
		}
	}
}

func Test_BuildContext_MissingMetadataDefaults(t *testing.T) {
	t.Parallel()

	got := BuildContext([]rag.Chunk{chunk("", "", "body")})
	want := "[Document 1: Unknown Document (General)]\nbody"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}
