package models

import "time"

// DurationEntry caches one probed file duration. Entries are invalidated
// when the file size changes.
type DurationEntry struct {
	Path      string    `json:"path" gorm:"type:text;primaryKey;column:path"`
	FileSize  int64     `json:"file_size" gorm:"type:integer;not null;column:file_size"`
	Seconds   int64     `json:"seconds" gorm:"type:integer;not null;column:seconds"`
	Estimated bool      `json:"estimated" gorm:"type:integer;not null;default:0;column:estimated"`
	ProbedAt  time.Time `json:"probed_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:probed_at"`
}

// TableName overrides the GORM table name
func (DurationEntry) TableName() string {
	return "duration_cache"
}
