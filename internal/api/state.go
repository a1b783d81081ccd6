package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/station"
)

// Request DTOs

// SwitchChannelRequest tunes the station. Exactly one selector is used, in
// order of precedence: channel_id, number, direction.
type SwitchChannelRequest struct {
	ChannelID string `json:"channel_id,omitempty"`
	Number    int    `json:"number,omitempty"`
	Direction string `json:"direction,omitempty"` // next or prev
}

// SkipRequest nudges the live cursor. Direction defaults to forward.
type SkipRequest struct {
	Direction string `json:"direction,omitempty"` // forward or backward
}

// VolumeRequest sets the player volume
type VolumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
}

// MuteRequest sets or toggles mute. Omitting muted toggles.
type MuteRequest struct {
	Muted *bool `json:"muted,omitempty"`
}

// StateHandler exposes the station's authoritative state and its control
// commands. Commands are idempotent to duplicate delivery: repeating one that
// is already in effect returns the current state without a version bump.
type StateHandler struct {
	station *station.Station
}

// NewStateHandler creates a new state handler instance
func NewStateHandler(st *station.Station) *StateHandler {
	return &StateHandler{station: st}
}

// GetState handles GET /api/state
func (h *StateHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.station.CurrentState())
}

// SwitchChannel handles POST /api/state/channel
func (h *StateHandler) SwitchChannel(c *gin.Context) {
	var req SwitchChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	var (
		snap station.Snapshot
		err  error
	)
	switch {
	case req.ChannelID != "":
		snap, err = h.station.SwitchChannel(c.Request.Context(), req.ChannelID)
	case req.Number > 0:
		snap, err = h.station.SwitchByNumber(c.Request.Context(), req.Number)
	case req.Direction == "next":
		snap, err = h.station.NextChannel(c.Request.Context())
	case req.Direction == "prev", req.Direction == "previous":
		snap, err = h.station.PrevChannel(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_selector",
			Message: "Provide channel_id, number, or direction",
		})
		return
	}

	if err != nil {
		h.rejectCommand(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Pause handles POST /api/state/pause
func (h *StateHandler) Pause(c *gin.Context) {
	c.JSON(http.StatusOK, h.station.Pause())
}

// Resume handles POST /api/state/resume
func (h *StateHandler) Resume(c *gin.Context) {
	c.JSON(http.StatusOK, h.station.Resume())
}

// Skip handles POST /api/state/skip
func (h *StateHandler) Skip(c *gin.Context) {
	var req SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body means skip forward
		if c.Request.ContentLength > 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request body",
			})
			return
		}
	}

	direction := station.SkipForward
	switch req.Direction {
	case "", "forward", "next":
	case "backward", "back", "prev":
		direction = station.SkipBackward
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_direction",
			Message: "Direction must be forward or backward",
		})
		return
	}

	snap, err := h.station.Skip(direction)
	if err != nil {
		h.rejectCommand(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetVolume handles POST /api/state/volume
func (h *StateHandler) SetVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Volume is required",
		})
		return
	}

	c.JSON(http.StatusOK, h.station.SetVolume(c.Request.Context(), *req.Volume))
}

// SetMute handles POST /api/state/mute
func (h *StateHandler) SetMute(c *gin.Context) {
	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if c.Request.ContentLength > 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request body",
			})
			return
		}
	}

	if req.Muted == nil {
		c.JSON(http.StatusOK, h.station.ToggleMute(c.Request.Context()))
		return
	}
	c.JSON(http.StatusOK, h.station.SetMuted(c.Request.Context(), *req.Muted))
}

// rejectCommand maps station command errors to API responses. Rejected
// commands never change station state.
func (h *StateHandler) rejectCommand(c *gin.Context, err error) {
	switch {
	case errors.Is(err, station.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "channel_not_found",
			Message: "Channel not found",
		})
	case errors.Is(err, station.ErrNoChannels):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "no_channels",
			Message: "No channels available",
		})
	default:
		logger.Log.Error().Err(err).Msg("State command failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "command_failed",
			Message: "Failed to apply command",
		})
	}
}

// SetupStateRoutes registers state and command routes
func SetupStateRoutes(apiGroup *gin.RouterGroup, st *station.Station) {
	handler := NewStateHandler(st)

	apiGroup.GET("/state", handler.GetState)
	apiGroup.POST("/state/channel", handler.SwitchChannel)
	apiGroup.POST("/state/pause", handler.Pause)
	apiGroup.POST("/state/resume", handler.Resume)
	apiGroup.POST("/state/skip", handler.Skip)
	apiGroup.POST("/state/volume", handler.SetVolume)
	apiGroup.POST("/state/mute", handler.SetMute)
}
