package retrieval

import (
	"context"
	"fmt"

	"craggo/src/core/crag"
	"craggo/src/storage/weaviate"
)

// Embedder turns text into an embedding vector. The ollama client satisfies it.
type Embedder interface {
	GetEmbedding(ctx context.Context, model, text string) ([]float32, error)
}

// WeaviateRetriever retrieves document chunks by vector similarity, embedding
// the query first. With hybrid enabled it mixes in BM25 over chunk content.
type WeaviateRetriever struct {
	sdk            *weaviate.SDK
	embedder       Embedder
	embeddingModel string
	className      string
	hybrid         bool
	hybridAlpha    float32
}

type WeaviateOption func(r *WeaviateRetriever)

// WithClassName overrides the chunk class queried.
func WithClassName(name string) WeaviateOption {
	return func(r *WeaviateRetriever) {
		r.className = name
	}
}

// WithHybrid enables hybrid search with the given vector weight.
func WithHybrid(alpha float32) WeaviateOption {
	return func(r *WeaviateRetriever) {
		r.hybrid = true
		r.hybridAlpha = alpha
	}
}

func NewWeaviateRetriever(sdk *weaviate.SDK, embedder Embedder, embeddingModel string, opts ...WeaviateOption) *WeaviateRetriever {
	r := &WeaviateRetriever{
		sdk:            sdk,
		embedder:       embedder,
		embeddingModel: embeddingModel,
		className:      weaviate.DefaultChunkClass,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *WeaviateRetriever) Retrieve(ctx context.Context, query string, k int) ([]crag.DocumentChunk, error) {
	vector, err := r.embedder.GetEmbedding(ctx, r.embeddingModel, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var results []weaviate.ChunkResult
	if r.hybrid {
		results, err = r.sdk.QueryHybrid(ctx, r.className, query, vector, r.hybridAlpha, k)
	} else {
		results, err = r.sdk.QueryNearVector(ctx, r.className, vector, k)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk index: %w", err)
	}

	chunks := make([]crag.DocumentChunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, crag.DocumentChunk{
			Content:  res.Content,
			SourceID: res.SourceID,
			Position: res.Position,
		})
	}
	return chunks, nil
}
