package station

import (
	"time"

	"github.com/rerun-tv/rerun/internal/guide"
)

// Snapshot is the authoritative view of the station at one instant. It is
// what GET /api/state returns and what the websocket hub pushes, so every
// observer renders from the same copy.
type Snapshot struct {
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	ChannelID     string `json:"channel_id,omitempty"`
	ChannelName   string `json:"channel_name,omitempty"`
	ChannelNumber int    `json:"channel_number,omitempty"`
	ChannelCount  int    `json:"channel_count"`

	// State mirrors the cursor state: show, commercial, bumper or no_content
	State string `json:"state"`

	// Title is what the on-screen display shows: the cleaned show title, or
	// "Commercial Break" while a pod is airing
	Title             string     `json:"title"`
	ItemID            string     `json:"item_id,omitempty"`
	OffsetSeconds     int64      `json:"offset_seconds"`
	DurationSeconds   int64      `json:"duration_seconds"`
	DurationEstimated bool       `json:"duration_estimated,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndsAt            *time.Time `json:"ends_at,omitempty"`

	Paused bool `json:"paused"`
	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`

	// SkipSeconds is the live skip adjustment, zero once it has decayed
	SkipSeconds int64 `json:"skip_seconds,omitempty"`

	// Upcoming lists the next shows on the active channel, broadcast truth
	// without any skip adjustment
	Upcoming []guide.Entry `json:"upcoming,omitempty"`
}

// OnAir reports whether the active channel is showing playable content
func (s *Snapshot) OnAir() bool {
	return s.State != "" && s.State != "no_content"
}
