package ingest

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"craggo/src/core/crag"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// SplitDocument cuts a document into overlapping chunks for indexing.
// Positions are assigned in document order.
func SplitDocument(sourceID, text string, chunkSize, chunkOverlap int) ([]crag.DocumentChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 5
		}
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split document: %w", err)
	}

	chunks := make([]crag.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, crag.DocumentChunk{
			Content:  piece,
			SourceID: sourceID,
			Position: i,
		})
	}
	return chunks, nil
}
