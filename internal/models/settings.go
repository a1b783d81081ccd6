package models

import (
	"time"
)

// StationSettings represents the persisted player state of the station.
// Settings is a singleton table with only one row. Pause state is
// deliberately not persisted: a restarted station always rejoins live.
type StationSettings struct {
	ID              int       `json:"id" gorm:"type:integer;primaryKey;default:1;column:id"`
	ActiveChannelID string    `json:"active_channel_id" gorm:"type:text;column:active_channel_id"`
	Volume          int       `json:"volume" gorm:"type:integer;default:50;column:volume" validate:"gte=0,lte=100"`
	Muted           bool      `json:"muted" gorm:"type:integer;default:0;column:muted"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// TableName overrides the GORM table name
func (StationSettings) TableName() string {
	return "station_settings"
}

// DefaultStationSettings returns settings with default values
func DefaultStationSettings() *StationSettings {
	return &StationSettings{
		ID:        1,
		Volume:    50,
		Muted:     false,
		UpdatedAt: time.Now().UTC(),
	}
}
