package assistant

import (
	"github.com/TURahim/RAGdemo/internal/rag"
)

// Confidence aggregates retrieval scores into one scalar: the arithmetic
// mean of the chunks' relevance scores, or 0.0 for an empty retrieval. This
// is a deliberate simplicity choice — no rank weighting, no calibration —
// so the value tracks the backend's similarity scale directly.
func Confidence(chunks []rag.Chunk) float64 {
	if len(chunks) == 0 {
		return 0.0
	}

	var sum float64
	for _, c := range chunks {
		sum += float64(c.Metadata.RelevanceScore)
	}
	return sum / float64(len(chunks))
}
