// Package timeline maps wall-clock time onto a channel's rotation, creating
// the illusion of a continuously broadcasting television channel. The
// mapping is a pure function of (rotation, epoch, now): no state advances,
// so any process that knows the rotation and epoch lands on the same frame.
package timeline

import (
	"time"

	"github.com/rerun-tv/rerun/internal/schedule"
)

// CursorAt calculates what a channel is airing at the given moment.
//
// Elapsed time since the epoch is wrapped modulo the cycle duration, then a
// cumulative walk over the segments finds the one containing that position.
// O(n) in segment count. Returns ErrNoContent for empty rotations and
// ErrBeforeEpoch when now precedes the epoch.
func CursorAt(rot *schedule.Rotation, epoch, now time.Time) (*Cursor, error) {
	if rot.IsEmpty() {
		return nil, ErrNoContent
	}

	elapsed := int64(now.Sub(epoch).Seconds())
	if elapsed < 0 {
		return nil, ErrBeforeEpoch
	}

	position := elapsed % rot.CycleDuration

	var accumulated int64
	for i := range rot.Segments {
		seg := &rot.Segments[i]
		if position < accumulated+seg.Duration {
			return buildCursor(rot, i, position-accumulated, now), nil
		}
		accumulated += seg.Duration
	}

	// Durations sum to the cycle length, so the walk lands in a segment;
	// pin to the end of the last one if they ever disagree
	return buildCursor(rot, len(rot.Segments)-1, rot.Segments[len(rot.Segments)-1].Duration-1, now), nil
}

// buildCursor assembles the cursor for segment i at the given offset
func buildCursor(rot *schedule.Rotation, i int, offset int64, now time.Time) *Cursor {
	seg := &rot.Segments[i]
	startedAt := now.Add(-time.Duration(offset) * time.Second)

	return &Cursor{
		State:         stateFor(seg.Kind),
		SegmentIndex:  i,
		Segment:       seg,
		OffsetSeconds: offset,
		StartedAt:     startedAt,
		EndsAt:        startedAt.Add(time.Duration(seg.Duration) * time.Second),
	}
}

// Walker resolves cursors against one rotation with a cached running
// index, skipping the cumulative walk while time moves forward within a
// cycle. Results are always identical to CursorAt; the cache is only a
// shortcut. Not safe for concurrent use.
type Walker struct {
	rot   *schedule.Rotation
	epoch time.Time

	idx      int   // cached segment index
	segStart int64 // cycle-relative start of segments[idx]
	lastPos  int64 // last resolved cycle-relative position
}

// NewWalker creates a walker for a rotation and epoch
func NewWalker(rot *schedule.Rotation, epoch time.Time) *Walker {
	return &Walker{rot: rot, epoch: epoch}
}

// At returns the cursor for the given moment
func (w *Walker) At(now time.Time) (*Cursor, error) {
	if w.rot.IsEmpty() {
		return nil, ErrNoContent
	}

	elapsed := int64(now.Sub(w.epoch).Seconds())
	if elapsed < 0 {
		return nil, ErrBeforeEpoch
	}

	position := elapsed % w.rot.CycleDuration

	// The cache only holds within a cycle moving forward; a wrap or a
	// backwards query restarts the walk from the top
	if position < w.lastPos {
		w.idx = 0
		w.segStart = 0
	}
	w.lastPos = position

	for w.idx < len(w.rot.Segments) {
		seg := &w.rot.Segments[w.idx]
		if position < w.segStart+seg.Duration {
			return buildCursor(w.rot, w.idx, position-w.segStart, now), nil
		}
		w.segStart += seg.Duration
		w.idx++
	}

	w.idx = len(w.rot.Segments) - 1
	return buildCursor(w.rot, w.idx, w.rot.Segments[w.idx].Duration-1, now), nil
}

// NextBreakStart returns the first break boundary strictly after the given
// moment: the start of the next break (the first non-show segment following
// a show), or the cycle wrap when no break remains in the current cycle.
// Skip adjustments expire at this boundary.
func NextBreakStart(rot *schedule.Rotation, epoch, after time.Time) (time.Time, error) {
	if rot.IsEmpty() {
		return time.Time{}, ErrNoContent
	}

	elapsed := int64(after.Sub(epoch).Seconds())
	if elapsed < 0 {
		return time.Time{}, ErrBeforeEpoch
	}

	cycleNum := elapsed / rot.CycleDuration
	position := elapsed % rot.CycleDuration
	cycleBase := cycleNum * rot.CycleDuration

	var accumulated int64
	for i := range rot.Segments {
		seg := &rot.Segments[i]
		breakStart := seg.Kind != schedule.SegmentShow &&
			(i == 0 || rot.Segments[i-1].Kind == schedule.SegmentShow)
		if breakStart && accumulated > position {
			return epoch.Add(time.Duration(cycleBase+accumulated) * time.Second), nil
		}
		accumulated += seg.Duration
	}

	// No break left in this cycle: the wrap is the next boundary
	return epoch.Add(time.Duration(cycleBase+rot.CycleDuration) * time.Second), nil
}
