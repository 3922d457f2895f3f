package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	// DefaultChunkClass is the class holding ingested document chunks.
	DefaultChunkClass = "DocumentChunk"

	DefaultQueryLimit = 20
)

// SDK encapsulates the Weaviate operations used by the chunk index.
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// EnsureChunkSchema creates the chunk class if it does not exist yet.
// Vectors are supplied by the caller, so the class carries no vectorizer.
func (w *SDK) EnsureChunkSchema(ctx context.Context, className string) error {
	exists, err := w.classExists(ctx, className)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %v", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class: className,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "sourceId", DataType: []string{"string"}},
			{Name: "position", DataType: []string{"int"}},
		},
		Vectorizer: "none",
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %v", err)
	}

	return nil
}

// classExists checks if a class exists in the schema
func (w *SDK) classExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %v", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}

// DeleteClass deletes a class and everything stored in it.
func (w *SDK) DeleteClass(ctx context.Context, className string) error {
	if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete Weaviate class: %v", err)
	}

	return nil
}

// Live reports whether the Weaviate instance answers schema requests.
func (w *SDK) Live(ctx context.Context) error {
	if _, err := w.client.Schema().Getter().Do(ctx); err != nil {
		return fmt.Errorf("weaviate not reachable: %v", err)
	}
	return nil
}

// ChunkObject is one chunk with its embedding, ready for indexing.
type ChunkObject struct {
	Vector   []float32
	Content  string
	SourceID string
	Position int
}

// BatchAddChunks indexes multiple chunks in a single batch operation.
func (w *SDK) BatchAddChunks(ctx context.Context, className string, chunks []ChunkObject) error {
	objs := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		objs[i] = &models.Object{
			Class: className,
			Properties: map[string]interface{}{
				"content":  chunk.Content,
				"sourceId": chunk.SourceID,
				"position": chunk.Position,
			},
			Vector: chunk.Vector,
		}
	}

	batcher := w.client.Batch().ObjectsBatcher()
	resp, err := batcher.WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add chunks: %v", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}

	return nil
}

// ChunkResult is a single chunk returned from a similarity query.
type ChunkResult struct {
	ID        string
	Content   string
	SourceID  string
	Position  int
	Certainty float64
}

var chunkFields = []graphql.Field{
	{Name: "content"},
	{Name: "sourceId"},
	{Name: "position"},
	{Name: "_additional { id distance certainty score }"},
}

// QueryNearVector performs vector similarity search over the chunk class.
func (w *SDK) QueryNearVector(ctx context.Context, className string, vector []float32, limit int) ([]ChunkResult, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(chunkFields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}

	return parseChunkResults(result.Data, className), nil
}

// QueryHybrid combines vector similarity with BM25 over the chunk content.
// Alpha weights the vector side; 0.75 means 75% vector, 25% BM25.
func (w *SDK) QueryHybrid(ctx context.Context, className, query string, vector []float32, alpha float32, limit int) ([]ChunkResult, error) {
	hybrid := w.client.GraphQL().HybridArgumentBuilder().
		WithVector(vector).
		WithQuery(query).
		WithAlpha(alpha)

	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(chunkFields...).
		WithHybrid(hybrid).
		WithLimit(limit).
		Do(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}

	return parseChunkResults(result.Data, className), nil
}

func parseChunkResults(data map[string]models.JSONObject, className string) []ChunkResult {
	var results []ChunkResult

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results
	}
	objects, ok := get[className].([]interface{})
	if !ok {
		return results
	}

	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		chunk := ChunkResult{
			Content:  stringProp(objMap, "content"),
			SourceID: stringProp(objMap, "sourceId"),
		}
		if pos, ok := objMap["position"].(float64); ok {
			chunk.Position = int(pos)
		}
		if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				chunk.ID = id
			}
			if certainty, ok := additional["certainty"].(float64); ok {
				chunk.Certainty = certainty
			}
		}

		results = append(results, chunk)
	}

	return results
}

func stringProp(props map[string]interface{}, name string) string {
	if v, ok := props[name].(string); ok {
		return v
	}
	return ""
}
