// Package schedule composes deterministic broadcast rotations: the fixed
// cycle of shows, commercial pods, and bumpers a channel airs on repeat.
package schedule

import (
	"math/rand"
	"time"

	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/models"
)

// How many times a shuffle is re-rolled to avoid repeating the previous
// cycle's order before giving up
const maxShuffleAttempts = 10

// Build composes a fresh rotation for a channel. The show order is the
// catalog order, or a seeded permutation when shuffle is enabled; with two
// or more shows the permutation is re-rolled (bounded attempts) if it lands
// on prevOrder, so back-to-back cycles do not repeat. Identical inputs
// always produce an identical rotation.
func Build(ch *models.Channel, policy models.BroadcastPolicy, seed int64, prevOrder []string) *Rotation {
	shows := orderShows(ch.Shows, policy, seed, prevOrder)
	return compose(ch, policy, seed, shows)
}

// BuildWithOrder reconstructs a rotation from a persisted show order. Shows
// are arranged by the stored ID order; IDs that vanished from the catalog
// are dropped and new items are appended in catalog order. This is the
// restart path: with an unchanged fingerprint it reproduces the exact
// rotation that was on air before shutdown.
func BuildWithOrder(ch *models.Channel, policy models.BroadcastPolicy, seed int64, order []string) *Rotation {
	byID := make(map[string]*models.MediaItem, len(ch.Shows))
	for _, show := range ch.Shows {
		byID[show.ID] = show
	}

	shows := make([]*models.MediaItem, 0, len(ch.Shows))
	used := make(map[string]bool, len(order))
	for _, id := range order {
		if show, ok := byID[id]; ok && !used[id] {
			shows = append(shows, show)
			used[id] = true
		}
	}
	for _, show := range ch.Shows {
		if !used[show.ID] {
			shows = append(shows, show)
		}
	}

	return compose(ch, policy, seed, shows)
}

// compose lays out the cycle: each show in order, with a break inserted
// whenever the cumulative show runtime since the last break reaches the
// configured interval. The runtime accumulator starts at zero each cycle,
// so every loop of the rotation is identical.
func compose(ch *models.Channel, policy models.BroadcastPolicy, seed int64, shows []*models.MediaItem) *Rotation {
	rot := &Rotation{
		ChannelID:   ch.ID,
		Seed:        seed,
		Fingerprint: Fingerprint(ch, policy),
		BuiltAt:     time.Now().UTC(),
	}

	if len(shows) == 0 {
		logger.Log.Debug().
			Str("channel_id", ch.ID).
			Msg("Channel has no shows, rotation is empty")
		return rot
	}

	rot.ShowOrder = make([]string, len(shows))
	for i, show := range shows {
		rot.ShowOrder[i] = show.ID
	}

	haveBreaks := len(ch.Commercials) > 0 && policy.BreakIntervalSec > 0 && policy.BreakDurationSec > 0

	var segments []Segment
	var cycle int64
	var sinceBreak int64
	adIdx, bumperIdx := 0, 0

	for _, show := range shows {
		segments = append(segments, Segment{Kind: SegmentShow, Item: show, Duration: show.Duration})
		cycle += show.Duration
		sinceBreak += show.Duration

		if haveBreaks && sinceBreak >= policy.BreakIntervalSec {
			breakSegs := composeBreak(ch, policy, &adIdx, &bumperIdx)
			for _, seg := range breakSegs {
				cycle += seg.Duration
			}
			segments = append(segments, breakSegs...)
			sinceBreak = 0
		}
	}

	rot.Segments = segments
	rot.CycleDuration = cycle

	logger.Log.Debug().
		Str("channel_id", ch.ID).
		Int("segments", len(segments)).
		Int("shows", len(shows)).
		Int64("cycle_seconds", cycle).
		Msg("Built rotation")

	return rot
}

// composeBreak assembles one break: an optional leading bumper, commercials
// round-robin until the pod fills the break duration exactly (the last
// commercial is trimmed to fit), and an optional trailing bumper. The ad
// and bumper cursors persist across breaks so consecutive pods rotate
// through the inventory instead of replaying the same spots.
func composeBreak(ch *models.Channel, policy models.BroadcastPolicy, adIdx, bumperIdx *int) []Segment {
	var segs []Segment

	useBumpers := policy.UseBumpers && len(ch.Bumpers) > 0
	if useBumpers {
		bumper := ch.Bumpers[*bumperIdx%len(ch.Bumpers)]
		*bumperIdx++
		segs = append(segs, Segment{Kind: SegmentBumper, Item: bumper, Duration: bumper.Duration})
	}

	remaining := policy.BreakDurationSec
	for remaining > 0 {
		ad := ch.Commercials[*adIdx%len(ch.Commercials)]
		*adIdx++

		dur := ad.Duration
		if dur > remaining {
			dur = remaining
		}
		// Zero-length ads cannot fill a pod
		if dur <= 0 {
			break
		}
		segs = append(segs, Segment{Kind: SegmentCommercial, Item: ad, Duration: dur})
		remaining -= dur
	}

	if useBumpers {
		bumper := ch.Bumpers[*bumperIdx%len(ch.Bumpers)]
		*bumperIdx++
		segs = append(segs, Segment{Kind: SegmentBumper, Item: bumper, Duration: bumper.Duration})
	}

	return segs
}

// orderShows picks the air order for a cycle
func orderShows(shows []*models.MediaItem, policy models.BroadcastPolicy, seed int64, prevOrder []string) []*models.MediaItem {
	if len(shows) == 0 {
		return nil
	}

	ordered := make([]*models.MediaItem, len(shows))
	copy(ordered, shows)

	if !policy.ShuffleShows {
		return ordered
	}

	ordered = shuffleShows(shows, seed)
	if len(shows) >= 2 && len(prevOrder) > 0 {
		for attempt := 1; attempt <= maxShuffleAttempts && sameOrder(ordered, prevOrder); attempt++ {
			ordered = shuffleShows(shows, seed+int64(attempt))
		}
	}

	return ordered
}

// shuffleShows returns a seeded permutation of shows
func shuffleShows(shows []*models.MediaItem, seed int64) []*models.MediaItem {
	out := make([]*models.MediaItem, len(shows))
	copy(out, shows)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// sameOrder reports whether shows air in exactly the given ID order
func sameOrder(shows []*models.MediaItem, order []string) bool {
	if len(shows) != len(order) {
		return false
	}
	for i, show := range shows {
		if show.ID != order[i] {
			return false
		}
	}
	return true
}
