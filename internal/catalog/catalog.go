// Package catalog discovers channels and media files on disk and publishes
// immutable library snapshots for the rest of the station to consume.
package catalog

import (
	"time"

	"github.com/rerun-tv/rerun/internal/models"
)

// Library is an immutable snapshot of the media tree as of one scan.
// Channels are ordered by number and never mutated after publication, so a
// snapshot can be shared across goroutines without locking.
type Library struct {
	Root      string
	Channels  []*models.Channel
	ScannedAt time.Time

	byID     map[string]*models.Channel
	byNumber map[int]*models.Channel
}

// NewLibrary builds a snapshot from scanned channels. Channels must already
// be sorted and numbered.
func NewLibrary(root string, channels []*models.Channel, scannedAt time.Time) *Library {
	lib := &Library{
		Root:      root,
		Channels:  channels,
		ScannedAt: scannedAt,
		byID:      make(map[string]*models.Channel, len(channels)),
		byNumber:  make(map[int]*models.Channel, len(channels)),
	}
	for _, ch := range channels {
		lib.byID[ch.ID] = ch
		lib.byNumber[ch.Number] = ch
	}
	return lib
}

// Channel looks up a channel by its slug ID
func (l *Library) Channel(id string) (*models.Channel, bool) {
	ch, ok := l.byID[id]
	return ch, ok
}

// ChannelByNumber looks up a channel by its dial position
func (l *Library) ChannelByNumber(number int) (*models.Channel, bool) {
	ch, ok := l.byNumber[number]
	return ch, ok
}

// ChannelIDs returns the slug IDs of all channels in dial order
func (l *Library) ChannelIDs() []string {
	ids := make([]string, 0, len(l.Channels))
	for _, ch := range l.Channels {
		ids = append(ids, ch.ID)
	}
	return ids
}

// IsEmpty reports whether the library has no channels at all
func (l *Library) IsEmpty() bool {
	return len(l.Channels) == 0
}

// ItemCount returns the total number of media items across all channels
func (l *Library) ItemCount() int {
	total := 0
	for _, ch := range l.Channels {
		total += ch.ItemCount()
	}
	return total
}
