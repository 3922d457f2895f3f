package chunkctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Chunk is the metadata row for one split piece of a resource. The chunk
// text itself lives in object storage under MinioURL.
type Chunk struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	ResourceID int64     `gorm:"not null" json:"resource_id"`
	MinioURL   string    `gorm:"not null;column:minio_url" json:"minio_url"` // bucket name + object name
	Position   int       `gorm:"not null;column:chunk_position" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ChunkService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewChunkService(db *gorm.DB) (*ChunkService, error) {
	node, err := snowflake.NewNode(2) // Node number 2 for chunks
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &ChunkService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *ChunkService) Create(ctx context.Context, resourceID int64, minioURL string, position int) (*Chunk, error) {
	chunk := &Chunk{
		ID:         s.snowflake.Generate().Int64(),
		ResourceID: resourceID,
		MinioURL:   minioURL,
		Position:   position,
	}

	result := s.db.WithContext(ctx).Create(chunk)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create chunk: %v", result.Error)
	}

	return chunk, nil
}

func (s *ChunkService) GetByResourceID(ctx context.Context, resourceID int64) ([]Chunk, error) {
	var chunks []Chunk
	result := s.db.WithContext(ctx).Where("resource_id = ?", resourceID).Order("chunk_position ASC").Find(&chunks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get chunks: %v", result.Error)
	}
	return chunks, nil
}

func (s *ChunkService) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	result := s.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&Chunk{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chunks: %v", result.Error)
	}
	return nil
}
