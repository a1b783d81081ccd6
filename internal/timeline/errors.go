package timeline

import "errors"

var (
	// ErrNoContent is returned when a channel's rotation has nothing to
	// broadcast (no shows survived the scan)
	ErrNoContent = errors.New("channel has no broadcastable content")

	// ErrBeforeEpoch is returned when asking for a cursor at a time before
	// the channel's broadcast epoch
	ErrBeforeEpoch = errors.New("time is before the channel epoch")
)
