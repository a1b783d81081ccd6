package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rerun-tv/rerun/internal/catalog"
	"github.com/rerun-tv/rerun/internal/db"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Time     string                 `json:"time"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *db.DB
	scanner *catalog.Scanner
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(database *db.DB, scanner *catalog.Scanner) *HealthHandler {
	return &HealthHandler{db: database, scanner: scanner}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]interface{}),
	}

	if h.scanner != nil {
		lib := h.scanner.Library()
		response.Details["channels"] = len(lib.Channels)
		response.Details["media_items"] = lib.ItemCount()
	}

	// Check database connectivity
	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"
	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, scanner *catalog.Scanner) {
	handler := NewHealthHandler(database, scanner)
	apiGroup.GET("/health", handler.Check)
}
