package timeline

import (
	"time"

	"github.com/rerun-tv/rerun/internal/schedule"
)

// CursorState describes what kind of content a channel is airing
type CursorState string

const (
	// StateNoContent indicates the channel has nothing to broadcast
	StateNoContent CursorState = "no_content"

	// StateShow indicates a show segment is on air
	StateShow CursorState = "show"

	// StateCommercial indicates a commercial segment is on air
	StateCommercial CursorState = "commercial"

	// StateBumper indicates a bumper segment is on air
	StateBumper CursorState = "bumper"
)

// Cursor describes what a channel is airing at one instant: the segment,
// the offset within it, and its absolute start and end times.
type Cursor struct {
	// State mirrors the segment kind, or no_content for empty rotations
	State CursorState `json:"state"`

	// SegmentIndex is the position of the segment within the rotation
	SegmentIndex int `json:"segment_index"`

	// Segment is the slice of air time the cursor falls in
	Segment *schedule.Segment `json:"segment"`

	// OffsetSeconds is the playback position within the segment
	OffsetSeconds int64 `json:"offset_seconds"`

	// StartedAt is when the segment went on air
	StartedAt time.Time `json:"started_at"`

	// EndsAt is when the segment leaves the air
	EndsAt time.Time `json:"ends_at"`
}

// Remaining returns how many seconds of the segment are left
func (c *Cursor) Remaining() int64 {
	if c.Segment == nil {
		return 0
	}
	return c.Segment.Duration - c.OffsetSeconds
}

// stateFor maps a segment kind to its cursor state
func stateFor(kind schedule.SegmentKind) CursorState {
	switch kind {
	case schedule.SegmentCommercial:
		return StateCommercial
	case schedule.SegmentBumper:
		return StateBumper
	default:
		return StateShow
	}
}
