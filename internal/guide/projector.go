// Package guide projects broadcast rotations into program-guide windows.
//
// A guide window is a pure function of (rotation, epoch, from, span): the
// same inputs always produce the same entries, so windows can be regenerated
// at any time without holding state. Rebuilds swap the rotation pointer and
// every later projection reflects only the new schedule.
package guide

import (
	"time"

	"github.com/rerun-tv/rerun/internal/schedule"
	"github.com/rerun-tv/rerun/internal/timeline"
)

// Entry kinds. Off-air marks a placeholder for channels with no content.
const (
	KindShow       = "show"
	KindCommercial = "commercial"
	KindBumper     = "bumper"
	KindOffAir     = "off_air"
)

// OffAirTitle is shown for channels that currently have nothing to broadcast.
const OffAirTitle = "Off Air"

// CommercialTitle is the display title for commercial entries.
const CommercialTitle = "Commercial Break"

// Entry is one row of the program guide.
type Entry struct {
	Kind              string    `json:"kind"`
	ItemID            string    `json:"item_id,omitempty"`
	Title             string    `json:"title"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	InProgress        bool      `json:"in_progress,omitempty"`
	DurationEstimated bool      `json:"duration_estimated,omitempty"`
}

// Window is a projected guide window for a single channel.
type Window struct {
	ChannelID string    `json:"channel_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Entries   []Entry   `json:"entries"`
}

// Project enumerates the segments airing in [from, from+span) with absolute
// start and end times. The first entry is the segment already in progress at
// `from`. An empty rotation yields a single off-air placeholder covering the
// window, and a window starting before the epoch is clamped to it.
func Project(rot *schedule.Rotation, epoch, from time.Time, span time.Duration) ([]Entry, error) {
	if span <= 0 {
		return []Entry{}, nil
	}
	end := from.Add(span)

	if rot.IsEmpty() {
		return []Entry{offAirEntry(from, end)}, nil
	}
	if from.Before(epoch) {
		from = epoch
		if !end.After(from) {
			return []Entry{}, nil
		}
	}

	cursor, err := timeline.CursorAt(rot, epoch, from)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, estimateEntryCount(rot, span))
	start := cursor.StartedAt
	idx := cursor.SegmentIndex
	for start.Before(end) {
		seg := rot.Segments[idx]
		entry := entryFor(seg, start)
		entry.InProgress = !start.After(from)
		entries = append(entries, entry)

		start = start.Add(time.Duration(seg.Duration) * time.Second)
		idx = (idx + 1) % len(rot.Segments)
	}
	return entries, nil
}

// ProjectShows is the simplified guide view: shows only, breaks filtered out.
// Off-air placeholders survive the filter so empty channels still render.
func ProjectShows(rot *schedule.Rotation, epoch, from time.Time, span time.Duration) ([]Entry, error) {
	entries, err := Project(rot, epoch, from, span)
	if err != nil {
		return nil, err
	}

	shows := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Kind == KindShow || entry.Kind == KindOffAir {
			shows = append(shows, entry)
		}
	}
	return shows, nil
}

// ProjectWindow wraps Project output with the channel and window bounds for
// the remote guide API.
func ProjectWindow(rot *schedule.Rotation, epoch, from time.Time, span time.Duration) (*Window, error) {
	entries, err := Project(rot, epoch, from, span)
	if err != nil {
		return nil, err
	}

	channelID := ""
	if rot != nil {
		channelID = rot.ChannelID
	}
	return &Window{
		ChannelID: channelID,
		From:      from,
		To:        from.Add(span),
		Entries:   entries,
	}, nil
}

func entryFor(seg schedule.Segment, start time.Time) Entry {
	entry := Entry{
		Kind:  string(seg.Kind),
		Start: start,
		End:   start.Add(time.Duration(seg.Duration) * time.Second),
	}
	if seg.Item != nil {
		entry.ItemID = seg.Item.ID
		entry.Title = seg.Item.Title
		entry.DurationEstimated = seg.Item.DurationEstimated
	}
	if seg.Kind == schedule.SegmentCommercial {
		entry.Title = CommercialTitle
	}
	return entry
}

func offAirEntry(from, end time.Time) Entry {
	return Entry{
		Kind:       KindOffAir,
		Title:      OffAirTitle,
		Start:      from,
		End:        end,
		InProgress: true,
	}
}

// estimateEntryCount sizes the entry slice from the rotation's mean segment
// length. Only a capacity hint, never a bound.
func estimateEntryCount(rot *schedule.Rotation, span time.Duration) int {
	if len(rot.Segments) == 0 || rot.CycleDuration <= 0 {
		return 0
	}
	mean := rot.CycleDuration / int64(len(rot.Segments))
	if mean <= 0 {
		mean = 1
	}
	return int(span/time.Second)/int(mean) + 2
}
