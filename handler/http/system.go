package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthStatus reports the state of each probed dependency.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	status := HealthStatus{
		Status:   "ok",
		Services: make(map[string]string, len(h.checkers)),
	}

	for _, checker := range h.checkers {
		if err := checker.Check(c.Request.Context()); err != nil {
			status.Status = "degraded"
			status.Services[checker.Name] = err.Error()
			continue
		}
		status.Services[checker.Name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	sendJSON(c, code, status)
}
