package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rerun-tv/rerun/internal/models"
)

// StationSettingsRepository handles database operations for station settings.
// Settings is a singleton table with only one row.
type StationSettingsRepository struct {
	db *DB
}

// NewStationSettingsRepository creates a new station settings repository
func NewStationSettingsRepository(db *DB) *StationSettingsRepository {
	return &StationSettingsRepository{db: db}
}

// Get retrieves the settings (creates with defaults if not exists)
func (r *StationSettingsRepository) Get(ctx context.Context) (*models.StationSettings, error) {
	var settings models.StationSettings
	result := r.db.WithContext(ctx).Where("id = ?", 1).First(&settings)

	// If not found, create with defaults
	if result.Error != nil {
		if errors.Is(MapGormError(result.Error), ErrNotFound) {
			defaults := models.DefaultStationSettings()
			if err := r.db.WithContext(ctx).Create(defaults).Error; err != nil {
				return nil, fmt.Errorf("failed to create default settings: %w", MapGormError(err))
			}
			return defaults, nil
		}
		return nil, MapGormError(result.Error)
	}

	return &settings, nil
}

// Update updates the settings (singleton row). All columns are written so
// that zero values like volume 0 or muted false are not silently skipped.
func (r *StationSettingsRepository) Update(ctx context.Context, settings *models.StationSettings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.StationSettings{}).
		Where("id = ?", 1).
		Select("active_channel_id", "volume", "muted", "updated_at").
		Updates(settings)
	if result.Error != nil {
		return fmt.Errorf("failed to update settings: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
