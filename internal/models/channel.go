package models

// Channel represents one broadcast channel discovered in the library.
// A channel is a direct subfolder of the library root with a Shows folder;
// Commercials and Bumpers folders are optional.
type Channel struct {
	ID     string `json:"id"`   // slug of the folder name, stable across restarts
	Name   string `json:"name"` // folder name as found on disk
	Number int    `json:"number"`

	Shows       []*MediaItem `json:"shows"`
	Commercials []*MediaItem `json:"commercials"`
	Bumpers     []*MediaItem `json:"bumpers"`
}

// HasContent reports whether the channel has anything to broadcast
func (c *Channel) HasContent() bool {
	return len(c.Shows) > 0
}

// ItemCount returns the total number of media items on the channel
func (c *Channel) ItemCount() int {
	return len(c.Shows) + len(c.Commercials) + len(c.Bumpers)
}

// TotalShowRuntime returns the summed duration of all shows in seconds
func (c *Channel) TotalShowRuntime() int64 {
	var total int64
	for _, s := range c.Shows {
		total += s.Duration
	}
	return total
}
