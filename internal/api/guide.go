package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rerun-tv/rerun/internal/config"
	"github.com/rerun-tv/rerun/internal/guide"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/station"
)

// GuideResponse is the full program guide across all channels
type GuideResponse struct {
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Channels []guide.Window `json:"channels"`
}

// ExportResponse reports where the XMLTV guide was written
type ExportResponse struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Guide windows are capped so a single request cannot project days of
// schedule for every channel.
const maxGuideHours = 48

// GuideHandler serves program guide projections
type GuideHandler struct {
	station *station.Station
	cfg     config.GuideConfig
}

// NewGuideHandler creates a new guide handler instance
func NewGuideHandler(st *station.Station, cfg config.GuideConfig) *GuideHandler {
	return &GuideHandler{station: st, cfg: cfg}
}

// GetGuide handles GET /api/guide
func (h *GuideHandler) GetGuide(c *gin.Context) {
	span, ok := h.parseSpan(c)
	if !ok {
		return
	}

	from := time.Now()
	windows := h.station.Guide(from, span)
	c.JSON(http.StatusOK, GuideResponse{
		From:     from,
		To:       from.Add(span),
		Channels: windows,
	})
}

// GetChannelGuide handles GET /api/guide/:channelId
func (h *GuideHandler) GetChannelGuide(c *gin.Context) {
	span, ok := h.parseSpan(c)
	if !ok {
		return
	}

	window, err := h.station.ChannelGuide(c.Param("channelId"), time.Now(), span)
	if err != nil {
		if errors.Is(err, station.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "channel_not_found",
				Message: "Channel not found",
			})
			return
		}
		logger.Log.Error().Err(err).Msg("Failed to project channel guide")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "guide_failed",
			Message: "Failed to project guide",
		})
		return
	}
	c.JSON(http.StatusOK, window)
}

// ExportGuide handles POST /api/guide/export
func (h *GuideHandler) ExportGuide(c *gin.Context) {
	if err := h.station.ExportGuide(h.cfg.ExportPath, h.cfg.Span); err != nil {
		logger.Log.Error().Err(err).Str("path", h.cfg.ExportPath).Msg("Failed to export XMLTV guide")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "export_failed",
			Message: "Failed to export guide",
		})
		return
	}
	c.JSON(http.StatusOK, ExportResponse{
		Path:    h.cfg.ExportPath,
		Message: "Guide exported",
	})
}

// parseSpan reads the optional hours query parameter, falling back to the
// configured guide span. Writes the error response itself on bad input.
func (h *GuideHandler) parseSpan(c *gin.Context) (time.Duration, bool) {
	raw := c.Query("hours")
	if raw == "" {
		return h.cfg.Span, true
	}

	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 || hours > maxGuideHours {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_hours",
			Message: "Hours must be between 1 and " + strconv.Itoa(maxGuideHours),
		})
		return 0, false
	}
	return time.Duration(hours) * time.Hour, true
}

// SetupGuideRoutes registers guide routes
func SetupGuideRoutes(apiGroup *gin.RouterGroup, st *station.Station, cfg config.GuideConfig) {
	handler := NewGuideHandler(st, cfg)

	apiGroup.GET("/guide", handler.GetGuide)
	apiGroup.GET("/guide/:channelId", handler.GetChannelGuide)
	apiGroup.POST("/guide/export", handler.ExportGuide)
}
