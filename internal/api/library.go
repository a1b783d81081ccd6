package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rerun-tv/rerun/internal/catalog"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/models"
	"github.com/rerun-tv/rerun/internal/station"
)

// Request/Response DTOs

// ScanResponse represents the response after triggering a scan
type ScanResponse struct {
	ScanID  string `json:"scan_id"`
	Message string `json:"message"`
}

// CancelResponse represents a successful scan cancellation
type CancelResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ChannelSummary is a channel without its media items, for listing
type ChannelSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Number          int    `json:"number"`
	ShowCount       int    `json:"show_count"`
	CommercialCount int    `json:"commercial_count"`
	BumperCount     int    `json:"bumper_count"`
	ShowRuntime     int64  `json:"show_runtime_seconds"`
}

// LibraryResponse represents the current library snapshot
type LibraryResponse struct {
	Root       string           `json:"root"`
	ScannedAt  time.Time        `json:"scanned_at"`
	TotalItems int              `json:"total_items"`
	Channels   []ChannelSummary `json:"channels"`
}

// LibraryHandler handles library and scan API requests
type LibraryHandler struct {
	scanner *catalog.Scanner
	station *station.Station
}

// NewLibraryHandler creates a new library handler instance
func NewLibraryHandler(scanner *catalog.Scanner, st *station.Station) *LibraryHandler {
	return &LibraryHandler{
		scanner: scanner,
		station: st,
	}
}

// GetLibrary handles GET /api/library
func (h *LibraryHandler) GetLibrary(c *gin.Context) {
	lib := h.scanner.Library()

	summaries := make([]ChannelSummary, 0, len(lib.Channels))
	for _, ch := range lib.Channels {
		summaries = append(summaries, summarizeChannel(ch))
	}

	c.JSON(http.StatusOK, LibraryResponse{
		Root:       lib.Root,
		ScannedAt:  lib.ScannedAt,
		TotalItems: lib.ItemCount(),
		Channels:   summaries,
	})
}

// GetChannel handles GET /api/library/channels/:channelId
func (h *LibraryHandler) GetChannel(c *gin.Context) {
	channelID := c.Param("channelId")

	ch, ok := h.scanner.Library().Channel(channelID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "channel_not_found",
			Message: "Channel not found",
		})
		return
	}

	c.JSON(http.StatusOK, ch)
}

// TriggerScan handles POST /api/library/scan. The scan is routed through the
// station so a completed rescan rebuilds broadcasts.
func (h *LibraryHandler) TriggerScan(c *gin.Context) {
	scanID, err := h.station.Rebuild()
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to start library scan")

		switch {
		case errors.Is(err, catalog.ErrScanAlreadyRunning):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "scan_in_progress",
				Message: "A scan is already running",
			})
		case errors.Is(err, catalog.ErrInvalidDirectory):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_directory",
				Message: err.Error(),
			})
		case errors.Is(err, station.ErrRescanUnavailable):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "scanner_unavailable",
				Message: "Library scanning is not available",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "scan_failed",
				Message: "Failed to start library scan",
			})
		}
		return
	}

	logger.Log.Info().
		Str("scan_id", scanID).
		Msg("Library scan started")

	c.JSON(http.StatusCreated, ScanResponse{
		ScanID:  scanID,
		Message: "Scan started",
	})
}

// GetScanStatus handles GET /api/library/scan/:scanId/status
func (h *LibraryHandler) GetScanStatus(c *gin.Context) {
	scanID := c.Param("scanId")

	progress, err := h.scanner.GetScanProgress(scanID)
	if err != nil {
		if errors.Is(err, catalog.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "scan_not_found",
				Message: "Scan not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("scan_id", scanID).
			Msg("Failed to get scan progress")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve scan progress",
		})
		return
	}

	c.JSON(http.StatusOK, progress)
}

// CancelScan handles DELETE /api/library/scan/:scanId
func (h *LibraryHandler) CancelScan(c *gin.Context) {
	scanID := c.Param("scanId")

	if err := h.scanner.CancelScan(scanID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrScanNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "scan_not_found",
				Message: "Scan not found",
			})
		case errors.Is(err, catalog.ErrScanNotRunning):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "scan_not_running",
				Message: err.Error(),
			})
		default:
			logger.Log.Error().
				Err(err).
				Str("scan_id", scanID).
				Msg("Failed to cancel scan")

			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "cancel_failed",
				Message: "Failed to cancel scan",
			})
		}
		return
	}

	logger.Log.Info().
		Str("scan_id", scanID).
		Msg("Library scan cancelled")

	c.JSON(http.StatusOK, CancelResponse{
		Message: "Scan cancelled",
	})
}

func summarizeChannel(ch *models.Channel) ChannelSummary {
	return ChannelSummary{
		ID:              ch.ID,
		Name:            ch.Name,
		Number:          ch.Number,
		ShowCount:       len(ch.Shows),
		CommercialCount: len(ch.Commercials),
		BumperCount:     len(ch.Bumpers),
		ShowRuntime:     ch.TotalShowRuntime(),
	}
}

// SetupLibraryRoutes registers library and scan routes
func SetupLibraryRoutes(apiGroup *gin.RouterGroup, scanner *catalog.Scanner, st *station.Station) {
	handler := NewLibraryHandler(scanner, st)

	apiGroup.GET("/library", handler.GetLibrary)
	apiGroup.GET("/library/channels/:channelId", handler.GetChannel)

	apiGroup.POST("/library/scan", handler.TriggerScan)
	apiGroup.GET("/library/scan/:scanId/status", handler.GetScanStatus)
	apiGroup.DELETE("/library/scan/:scanId", handler.CancelScan)
}
