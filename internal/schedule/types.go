package schedule

import (
	"time"

	"github.com/rerun-tv/rerun/internal/models"
)

// SegmentKind tags what kind of air time a segment fills
type SegmentKind string

// Segment kinds
const (
	SegmentShow       SegmentKind = "show"
	SegmentCommercial SegmentKind = "commercial"
	SegmentBumper     SegmentKind = "bumper"
)

// Segment is one slice of air time within a rotation. Duration may be
// shorter than the item's full runtime when a commercial is trimmed to make
// a break pod fit exactly.
type Segment struct {
	Kind     SegmentKind       `json:"kind"`
	Item     *models.MediaItem `json:"item"`
	Duration int64             `json:"duration"`
}

// Rotation is one deterministic broadcast cycle for a channel: every show
// exactly once with breaks composed between them. The timeline loops it by
// taking elapsed time modulo CycleDuration, so the rotation itself never
// changes while on air.
type Rotation struct {
	ChannelID     string    `json:"channel_id"`
	Segments      []Segment `json:"segments"`
	CycleDuration int64     `json:"cycle_duration"`
	Seed          int64     `json:"seed"`
	ShowOrder     []string  `json:"show_order"`
	Fingerprint   string    `json:"fingerprint"`
	BuiltAt       time.Time `json:"built_at"`
}

// IsEmpty reports whether the rotation has nothing to broadcast
func (r *Rotation) IsEmpty() bool {
	return r == nil || len(r.Segments) == 0 || r.CycleDuration <= 0
}

// ShowCount returns the number of show segments in the cycle
func (r *Rotation) ShowCount() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, seg := range r.Segments {
		if seg.Kind == SegmentShow {
			count++
		}
	}
	return count
}
