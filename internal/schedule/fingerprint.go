package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rerun-tv/rerun/internal/models"
)

// Fingerprint hashes a channel's broadcastable content and policy into a
// content identity. Two channels with the same items, durations, and policy
// produce the same fingerprint regardless of when or how they were scanned,
// which is what lets a rebuild keep the running epoch when nothing actually
// changed.
func Fingerprint(ch *models.Channel, policy models.BroadcastPolicy) string {
	h := sha256.New()

	writeGroup := func(label string, items []*models.MediaItem) {
		io.WriteString(h, label)
		for _, item := range items {
			fmt.Fprintf(h, "%s:%d;", item.ID, item.Duration)
		}
	}

	writeGroup("shows|", ch.Shows)
	writeGroup("commercials|", ch.Commercials)
	writeGroup("bumpers|", ch.Bumpers)
	fmt.Fprintf(h, "policy|%d:%d:%t:%t",
		policy.BreakIntervalSec,
		policy.BreakDurationSec,
		policy.UseBumpers,
		policy.ShuffleShows,
	)

	return hex.EncodeToString(h.Sum(nil))
}
