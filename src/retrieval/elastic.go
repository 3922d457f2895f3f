package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"craggo/src/core/crag"
)

const DefaultChunkIndex = "document_chunks"

// ElasticRetriever retrieves document chunks by BM25 full-text match. It is
// the lexical alternative to the vector-based retriever and needs no
// embedding model at query time.
type ElasticRetriever struct {
	client *elasticsearch.Client
	index  string
}

type chunkDocument struct {
	Content  string `json:"content"`
	SourceID string `json:"source_id"`
	Position int    `json:"position"`
}

type searchHits struct {
	Hits struct {
		Hits []struct {
			Source chunkDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func NewElasticRetriever(client *elasticsearch.Client, index string) *ElasticRetriever {
	if index == "" {
		index = DefaultChunkIndex
	}

	return &ElasticRetriever{
		client: client,
		index:  index,
	}
}

func (r *ElasticRetriever) Retrieve(ctx context.Context, query string, k int) ([]crag.DocumentChunk, error) {
	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": query,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("elasticsearch returned %s: %s", res.Status(), string(msg))
	}

	var parsed searchHits
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	chunks := make([]crag.DocumentChunk, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		chunks = append(chunks, crag.DocumentChunk{
			Content:  hit.Source.Content,
			SourceID: hit.Source.SourceID,
			Position: hit.Source.Position,
		})
	}
	return chunks, nil
}

// IndexChunks stores chunks for BM25 retrieval. Documents are indexed one by
// one; ingest volumes are small enough that the bulk API is not worth the
// extra parsing.
func (r *ElasticRetriever) IndexChunks(ctx context.Context, chunks []crag.DocumentChunk) error {
	for _, chunk := range chunks {
		doc := chunkDocument{
			Content:  chunk.Content,
			SourceID: chunk.SourceID,
			Position: chunk.Position,
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode chunk: %w", err)
		}

		res, err := r.client.Index(
			r.index,
			bytes.NewReader(data),
			r.client.Index.WithContext(ctx),
			r.client.Index.WithDocumentID(fmt.Sprintf("%s-%d", chunk.SourceID, chunk.Position)),
		)
		if err != nil {
			return fmt.Errorf("failed to index chunk: %w", err)
		}
		res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("elasticsearch returned %s indexing chunk %s-%d", res.Status(), chunk.SourceID, chunk.Position)
		}
	}

	return nil
}
