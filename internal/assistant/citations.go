package assistant

import (
	"github.com/TURahim/RAGdemo/internal/rag"
)

// Citation identifies one source document referenced by an answer.
// The JSON tags define the wire shape returned to API callers.
type Citation struct {
	// EntityID is the identifier of the cited source document.
	EntityID int64 `json:"entity_id"`
	// EntityType is the kind of source entity. Defaults to "page".
	EntityType string `json:"entity_type"`
	// Title is the cited document's title. Defaults to "Unknown".
	Title string `json:"title"`
	// Department is the owning department. Defaults to "General".
	Department string `json:"department"`
	// RelevanceScore is the similarity score of the best-ranked chunk that
	// produced this citation.
	RelevanceScore float32 `json:"relevance_score"`
}

// ExtractCitations derives the citation list from retrieved chunks: retrieval
// order, one citation per distinct entity (first occurrence wins), chunks
// without a source entity skipped. Always returns a non-nil slice so empty
// citation lists marshal as [] rather than null.
func ExtractCitations(chunks []rag.Chunk) []Citation {
	citations := make([]Citation, 0, len(chunks))
	seen := make(map[int64]bool, len(chunks))

	for _, c := range chunks {
		id := c.Metadata.EntityID
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true

		citation := Citation{
			EntityID:       id,
			EntityType:     c.Metadata.EntityType,
			Title:          c.Metadata.Title,
			Department:     c.Metadata.Department,
			RelevanceScore: c.Metadata.RelevanceScore,
		}
		if citation.EntityType == "" {
			citation.EntityType = "page"
		}
		if citation.Title == "" {
			citation.Title = "Unknown"
		}
		if citation.Department == "" {
			citation.Department = "General"
		}
		citations = append(citations, citation)
	}

	return citations
}
