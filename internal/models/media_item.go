// Package models defines the domain entities shared across the application.
package models

import "fmt"

// ItemKind classifies a media item by the role it plays on air
type ItemKind string

// Media item kind constants
const (
	KindShow       ItemKind = "show"
	KindCommercial ItemKind = "commercial"
	KindBumper     ItemKind = "bumper"
)

// MediaItem represents one video file discovered in the library.
// The ID is derived from the file path and size so it survives restarts
// and rescans as long as the file itself is unchanged.
type MediaItem struct {
	ID       string   `json:"id"`
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Kind     ItemKind `json:"kind"`
	Duration int64    `json:"duration"` // seconds

	// DurationEstimated is set when the probe failed and the configured
	// default duration was substituted
	DurationEstimated bool  `json:"duration_estimated,omitempty"`
	FileSize          int64 `json:"file_size,omitempty"`
}

// DurationString returns duration in HH:MM:SS format
func (m *MediaItem) DurationString() string {
	hours := m.Duration / 3600
	minutes := (m.Duration % 3600) / 60
	seconds := m.Duration % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
