package models

// BroadcastPolicy controls how the rotation for a channel is composed.
// Durations are whole seconds so persisted snapshots and fingerprints
// stay byte-stable.
type BroadcastPolicy struct {
	// BreakIntervalSec is the minimum accumulated show runtime between
	// two commercial breaks
	BreakIntervalSec int64 `json:"break_interval_sec"`

	// BreakDurationSec is the length every commercial pod is filled to
	BreakDurationSec int64 `json:"break_duration_sec"`

	// UseBumpers frames each break with a leading and trailing bumper
	// when the channel has any
	UseBumpers bool `json:"use_bumpers"`

	// ShuffleShows randomizes the show order per rotation build instead
	// of using library order
	ShuffleShows bool `json:"shuffle_shows"`
}
