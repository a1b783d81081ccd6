package station

import "errors"

// Sentinel errors for station command handling
var (
	// ErrChannelNotFound is returned when a command names a channel that is
	// not part of the current library. The station state is left untouched.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNoChannels is returned when channel navigation is attempted while
	// the library has no channels at all
	ErrNoChannels = errors.New("no channels available")

	// ErrRescanUnavailable is returned by Rebuild when no scanner has been
	// wired into the station
	ErrRescanUnavailable = errors.New("rescan is not available")
)
