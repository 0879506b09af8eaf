package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler manages the liveness probe endpoint.
type Handler struct{}

// NewHandler creates a new health check handler
func NewHandler() *Handler {
	return &Handler{}
}

// StatusResponse is the liveness probe body.
type StatusResponse struct {
	Status string `json:"status"`
}

// Liveness handles GET /health.
// Returns 200 if the process is alive (no dependency checks).
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}
