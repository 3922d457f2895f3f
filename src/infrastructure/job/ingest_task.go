package job

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"craggo/src/core/ingest"
	"craggo/src/infrastructure/integrations/ollama"
	"craggo/src/retrieval"
	"craggo/src/storage/minioctrl"
	"craggo/src/storage/postgres/chunkctrl"
	"craggo/src/storage/postgres/resourcectrl"
	"craggo/src/storage/weaviate"
)

const TaskTypeIngest = "ingest"

type IngestPayload struct {
	ResourceID   string `json:"resource_id"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

// SplitParams resolves the splitting parameters for this payload. The upload
// handler enqueues payloads with both fields unset, so zero means "use the
// defaults"; an overlap that does not fit the chunk size is scaled to the
// default ratio.
func (p IngestPayload) SplitParams() (chunkSize, chunkOverlap int) {
	chunkSize = p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = ingest.DefaultChunkSize
	}
	chunkOverlap = p.ChunkOverlap
	if chunkOverlap <= 0 || chunkOverlap >= chunkSize {
		chunkOverlap = ingest.DefaultChunkOverlap
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 5
		}
	}
	return chunkSize, chunkOverlap
}

// IngestTask turns an uploaded resource into indexed chunks: split, store
// chunk text in object storage, record metadata rows, embed and index.
type IngestTask struct {
	resourceService  *resourcectrl.ResourceService
	chunkService     *chunkctrl.ChunkService
	minioService     *minioctrl.MinioService
	ollamaClient     *ollama.Client
	weaviateSDK      *weaviate.SDK
	embeddingModel   string
	chunkClass       string
	elasticRetriever *retrieval.ElasticRetriever // optional BM25 index
}

func NewIngestTask(
	resourceService *resourcectrl.ResourceService,
	chunkService *chunkctrl.ChunkService,
	minioService *minioctrl.MinioService,
	ollamaClient *ollama.Client,
	weaviateSDK *weaviate.SDK,
	embeddingModel string,
	chunkClass string,
	elasticRetriever *retrieval.ElasticRetriever,
) *IngestTask {
	if chunkClass == "" {
		chunkClass = weaviate.DefaultChunkClass
	}

	return &IngestTask{
		resourceService:  resourceService,
		chunkService:     chunkService,
		minioService:     minioService,
		ollamaClient:     ollamaClient,
		weaviateSDK:      weaviateSDK,
		embeddingModel:   embeddingModel,
		chunkClass:       chunkClass,
		elasticRetriever: elasticRetriever,
	}
}

func (task *IngestTask) HandleIngestTask(ctx context.Context, payload json.RawMessage) error {
	var ingestPayload IngestPayload
	if err := json.Unmarshal(payload, &ingestPayload); err != nil {
		return fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}

	resourceID, err := strconv.ParseInt(ingestPayload.ResourceID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid resource ID: %w", err)
	}
	resource, err := task.resourceService.GetByID(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("failed to get resource: %w", err)
	}
	if resource == nil {
		return fmt.Errorf("resource not found: %s", ingestPayload.ResourceID)
	}

	if err := task.minioService.EnsureBucketExists(ctx, minioctrl.ChunksBucket); err != nil {
		return fmt.Errorf("failed to ensure chunks bucket exists: %w", err)
	}
	if err := task.weaviateSDK.EnsureChunkSchema(ctx, task.chunkClass); err != nil {
		return fmt.Errorf("failed to ensure chunk schema: %w", err)
	}

	// Re-ingesting a resource replaces its previous chunks.
	if err := task.cleanupExistingChunks(ctx, resourceID); err != nil {
		return fmt.Errorf("failed to cleanup existing chunks: %w", err)
	}

	bucket, objectName := task.minioService.GetBucketAndObjectFromURL(resource.MinioURL)
	document, err := task.minioService.GetObject(ctx, bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to get resource content: %w", err)
	}

	sourceID := strconv.FormatInt(resource.ID, 10)
	chunkSize, chunkOverlap := ingestPayload.SplitParams()
	chunks, err := ingest.SplitDocument(sourceID, string(document), chunkSize, chunkOverlap)
	if err != nil {
		return fmt.Errorf("failed to split resource: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("resource %s produced no chunks", ingestPayload.ResourceID)
	}

	objects := make([]weaviate.ChunkObject, 0, len(chunks))
	for _, chunk := range chunks {
		chunkObjectName := fmt.Sprintf("%s_chunk_%d", objectName, chunk.Position)
		if err := task.minioService.PutObject(ctx, minioctrl.ChunksBucket, chunkObjectName, []byte(chunk.Content)); err != nil {
			return fmt.Errorf("failed to save chunk content: %w", err)
		}

		chunkMinioURL := fmt.Sprintf("%s/%s", minioctrl.ChunksBucket, chunkObjectName)
		if _, err := task.chunkService.Create(ctx, resource.ID, chunkMinioURL, chunk.Position); err != nil {
			return fmt.Errorf("failed to save chunk record: %w", err)
		}

		vector, err := task.ollamaClient.GetEmbedding(ctx, task.embeddingModel, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", chunk.Position, err)
		}

		objects = append(objects, weaviate.ChunkObject{
			Vector:   vector,
			Content:  chunk.Content,
			SourceID: chunk.SourceID,
			Position: chunk.Position,
		})
	}

	if err := task.weaviateSDK.BatchAddChunks(ctx, task.chunkClass, objects); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}

	if task.elasticRetriever != nil {
		if err := task.elasticRetriever.IndexChunks(ctx, chunks); err != nil {
			return fmt.Errorf("failed to index chunks for BM25: %w", err)
		}
	}

	return nil
}

func (task *IngestTask) cleanupExistingChunks(ctx context.Context, resourceID int64) error {
	existing, err := task.chunkService.GetByResourceID(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("failed to get existing chunks: %w", err)
	}

	for _, chunk := range existing {
		bucket, objectName := task.minioService.GetBucketAndObjectFromURL(chunk.MinioURL)
		if err := task.minioService.DeleteObject(ctx, bucket, objectName); err != nil {
			return fmt.Errorf("failed to delete chunk object: %w", err)
		}
	}

	if err := task.chunkService.DeleteByResourceID(ctx, resourceID); err != nil {
		return fmt.Errorf("failed to delete chunk records: %w", err)
	}

	return nil
}
