package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/rerun-tv/rerun/internal/models"
)

// DurationRepository handles the probed duration cache
type DurationRepository struct {
	db *DB
}

// NewDurationRepository creates a new duration cache repository
func NewDurationRepository(database *DB) *DurationRepository {
	return &DurationRepository{db: database}
}

// Get retrieves a cached duration entry by file path
func (r *DurationRepository) Get(ctx context.Context, path string) (*models.DurationEntry, error) {
	var entry models.DurationEntry
	err := r.db.WithContext(ctx).Where("path = ?", path).First(&entry).Error
	if err != nil {
		return nil, MapGormError(err)
	}
	return &entry, nil
}

// GetAll loads the entire cache keyed by path. Scans read the cache once
// up front instead of querying per file.
func (r *DurationRepository) GetAll(ctx context.Context) (map[string]*models.DurationEntry, error) {
	var entries []*models.DurationEntry
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, MapGormError(err)
	}
	cache := make(map[string]*models.DurationEntry, len(entries))
	for _, entry := range entries {
		cache[entry.Path] = entry
	}
	return cache, nil
}

// Upsert inserts or replaces a duration entry
func (r *DurationRepository) Upsert(ctx context.Context, entry *models.DurationEntry) error {
	entry.ProbedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert duration entry: %w", MapGormError(err))
	}
	return nil
}

// DeleteNotIn prunes cache entries for files that were not seen by the
// latest scan
func (r *DurationRepository) DeleteNotIn(ctx context.Context, keepPaths []string) error {
	query := r.db.WithContext(ctx)
	if len(keepPaths) > 0 {
		query = query.Where("path NOT IN ?", keepPaths)
	} else {
		query = query.Where("1 = 1")
	}
	if err := query.Delete(&models.DurationEntry{}).Error; err != nil {
		return fmt.Errorf("failed to prune duration cache: %w", MapGormError(err))
	}
	return nil
}
