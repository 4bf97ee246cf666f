package assistant

import (
	"fmt"
	"strings"

	"github.com/TURahim/RAGdemo/internal/rag"
)

// NoDocuments is the exact text used as grounding context when retrieval
// returned nothing. The QA prompt instructs the model to branch on this
// wording, so it must be reproduced verbatim.
const NoDocuments = "No relevant documents found."

// documentSeparator joins consecutive context blocks.
const documentSeparator = "\n\n---\n\n"

// BuildContext renders retrieved chunks into the single grounding block fed
// to the model. Each chunk becomes
//
//	[Document N: Title (Department)]
//	chunk text
//
// with N 1-based in retrieval order. Chunks indexed without a title or
// department fall back to "Unknown Document" and "General".
func BuildContext(chunks []rag.Chunk) string {
	if len(chunks) == 0 {
		return NoDocuments
	}

	blocks := make([]string, 0, len(chunks))
	for i, c := range chunks {
		title := c.Metadata.Title
		if title == "" {
			title = "Unknown Document"
		}
		department := c.Metadata.Department
		if department == "" {
			department = "General"
		}
		blocks = append(blocks, fmt.Sprintf("[Document %d: %s (%s)]\n%s", i+1, title, department, c.Text))
	}

	return strings.Join(blocks, documentSeparator)
}
