package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// PostgresJobRepository stores jobs in the jobs table shared by the server
// and the worker. The server writes the pending row, the worker drives the
// status transitions.
type PostgresJobRepository struct {
	db *gorm.DB
}

func NewPostgresJobRepository(db *gorm.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	created := &Job{
		TaskType: taskType,
		Payload:  payload,
		Status:   JobStatusPending,
	}

	if result := r.db.WithContext(ctx).Create(created); result.Error != nil {
		return nil, result.Error
	}

	return created, nil
}

// Get returns the job with the given ID, or nil when no such job exists.
func (r *PostgresJobRepository) Get(ctx context.Context, id int64) (*Job, error) {
	var found Job
	result := r.db.WithContext(ctx).First(&found, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &found, nil
}

func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id int64, status JobStatus, errMsg *string) error {
	result := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": status,
		"error":  errMsg,
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}

	return nil
}
