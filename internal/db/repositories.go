package db

// Repositories provides access to all database repositories
type Repositories struct {
	States    *ChannelStateRepository
	Durations *DurationRepository
	Settings  *StationSettingsRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		States:    NewChannelStateRepository(db),
		Durations: NewDurationRepository(db),
		Settings:  NewStationSettingsRepository(db),
	}
}
