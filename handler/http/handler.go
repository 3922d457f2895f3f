package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"craggo/src/core/crag"
	"craggo/src/infrastructure/job"
	"craggo/src/storage/minioctrl"
	"craggo/src/storage/postgres/resourcectrl"
)

// QueryService answers queries through the corrective pipeline.
type QueryService interface {
	Answer(ctx context.Context, sessionID, query string) (*crag.Answer, error)
	History(sessionID string) []*crag.Answer
}

// JobService enqueues and reads background jobs.
type JobService interface {
	EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*job.Job, error)
	GetJob(ctx context.Context, id int64) (*job.Job, error)
}

// HealthChecker probes one dependency. Name identifies it in the response.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	queryService    QueryService
	jobService      JobService
	minioService    *minioctrl.MinioService
	resourceService *resourcectrl.ResourceService
	checkers        []HealthChecker
}

func NewHandler(
	queryService QueryService,
	jobService JobService,
	minioService *minioctrl.MinioService,
	resourceService *resourcectrl.ResourceService,
	checkers []HealthChecker,
) *Handler {
	return &Handler{
		queryService:    queryService,
		jobService:      jobService,
		minioService:    minioService,
		resourceService: resourceService,
		checkers:        checkers,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// Query routes
	api.POST("/query", h.Query)
	api.GET("/history", h.GetHistory)

	// Resource routes
	api.GET("/resources", h.ListResources)
	api.POST("/resources", h.UploadResource)
	api.GET("/jobs/:id", h.GetJob)

	// System routes
	api.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, crag.ErrGenerationFailure):
		code = "GENERATION_FAILED"
		status = http.StatusBadGateway
	case errors.Is(err, crag.ErrRateLimitExceeded):
		code = "RATE_LIMIT_EXCEEDED"
		status = http.StatusTooManyRequests
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	case status == http.StatusNotFound:
		code = "NOT_FOUND"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
