package ingest_test

import (
	"strings"
	"testing"

	"craggo/src/core/ingest"
)

func TestSplitDocument(t *testing.T) {
	t.Run("empty document yields no chunks", func(t *testing.T) {
		chunks, err := ingest.SplitDocument("doc", "   \n ", 100, 20)
		if err != nil {
			t.Fatalf("SplitDocument() error = %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("SplitDocument() = %v, want no chunks", chunks)
		}
	})

	t.Run("short document is a single chunk", func(t *testing.T) {
		chunks, err := ingest.SplitDocument("doc", "just a short note", 100, 20)
		if err != nil {
			t.Fatalf("SplitDocument() error = %v", err)
		}
		if len(chunks) != 1 {
			t.Fatalf("SplitDocument() returned %d chunks, want 1", len(chunks))
		}
		if chunks[0].Content != "just a short note" || chunks[0].SourceID != "doc" || chunks[0].Position != 0 {
			t.Errorf("chunk = %+v", chunks[0])
		}
	})

	t.Run("oversized overlap falls back to a workable value", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 20; i++ {
			sb.WriteString("Repeating sentence to force more than one chunk.\n\n")
		}

		chunks, err := ingest.SplitDocument("doc", sb.String(), 100, 500)
		if err != nil {
			t.Fatalf("SplitDocument() error = %v", err)
		}
		if len(chunks) < 2 {
			t.Fatalf("SplitDocument() returned %d chunks, want several", len(chunks))
		}
		for i, chunk := range chunks {
			if len(chunk.Content) > 100 {
				t.Errorf("chunks[%d] length = %d, exceeds chunk size", i, len(chunk.Content))
			}
		}
	})

	t.Run("long document is split with ordered positions", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 50; i++ {
			sb.WriteString("Paragraph content that repeats to exceed the chunk size.\n\n")
		}

		chunks, err := ingest.SplitDocument("doc", sb.String(), 200, 40)
		if err != nil {
			t.Fatalf("SplitDocument() error = %v", err)
		}
		if len(chunks) < 2 {
			t.Fatalf("SplitDocument() returned %d chunks, want several", len(chunks))
		}
		for i, chunk := range chunks {
			if chunk.Position != i {
				t.Errorf("chunks[%d].Position = %d, want %d", i, chunk.Position, i)
			}
			if len(chunk.Content) > 200 {
				t.Errorf("chunks[%d] length = %d, exceeds chunk size", i, len(chunk.Content))
			}
		}
	})
}
