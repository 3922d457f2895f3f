package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"craggo/src/infrastructure/job"
	"craggo/src/storage/minioctrl"
)

// ListResources godoc
// @Summary List uploaded resources
// @Tags resources
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /resources [get]
func (h *Handler) ListResources(c *gin.Context) {
	limit := 10
	offset := 0

	if limitParam := c.Query("limit"); limitParam != "" {
		if _, err := fmt.Sscanf(limitParam, "%d", &limit); err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid limit parameter"))
			return
		}
	}
	if offsetParam := c.Query("offset"); offsetParam != "" {
		if _, err := fmt.Sscanf(offsetParam, "%d", &offset); err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid offset parameter"))
			return
		}
	}

	resources, err := h.resourceService.List(c.Request.Context(), limit, offset)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{
		"resources": resources,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// UploadResource godoc
// @Summary Upload a document and queue it for ingestion
// @Tags resources
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /resources [post]
func (h *Handler) UploadResource(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("no file uploaded"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file"))
		return
	}
	if len(fileBytes) == 0 {
		sendError(c, http.StatusBadRequest, fmt.Errorf("uploaded file is empty"))
		return
	}

	if err := h.minioService.EnsureBucketExists(c.Request.Context(), minioctrl.DocumentsBucket); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	objectName := uuid.New().String()
	if err := h.minioService.PutObject(c.Request.Context(), minioctrl.DocumentsBucket, objectName, fileBytes); err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to store file"))
		return
	}

	resource, err := h.resourceService.Create(c.Request.Context(), header.Filename, fmt.Sprintf("%s/%s", minioctrl.DocumentsBucket, objectName))
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to record resource"))
		return
	}

	payload, err := json.Marshal(job.IngestPayload{
		ResourceID: strconv.FormatInt(resource.ID, 10),
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	queued, err := h.jobService.EnqueueJob(c.Request.Context(), job.TaskTypeIngest, payload)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to enqueue ingest job"))
		return
	}

	sendJSON(c, http.StatusAccepted, gin.H{
		"id":       resource.ID,
		"filename": resource.Filename,
		"job_id":   queued.ID,
	})
}

// GetJob godoc
// @Summary Get the status of a background job
// @Tags resources
// @Param id path int true "Job ID"
// @Produce json
// @Success 200 {object} job.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid job ID"))
		return
	}

	found, err := h.jobService.GetJob(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if found == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("job not found: %d", id))
		return
	}

	sendJSON(c, http.StatusOK, found)
}
