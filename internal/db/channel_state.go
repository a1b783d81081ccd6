package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rerun-tv/rerun/internal/models"
)

// ChannelStateRepository handles persisted broadcast state for channels
type ChannelStateRepository struct {
	db *DB
}

// NewChannelStateRepository creates a new channel state repository
func NewChannelStateRepository(database *DB) *ChannelStateRepository {
	return &ChannelStateRepository{db: database}
}

// Get retrieves the persisted state for a channel by its ID
func (r *ChannelStateRepository) Get(ctx context.Context, channelID string) (*models.ChannelState, error) {
	var state models.ChannelState
	err := r.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&state).Error
	if err != nil {
		return nil, MapGormError(err)
	}
	return &state, nil
}

// List retrieves all persisted channel states
func (r *ChannelStateRepository) List(ctx context.Context) ([]*models.ChannelState, error) {
	var states []*models.ChannelState
	err := r.db.WithContext(ctx).Order("channel_id ASC").Find(&states).Error
	if err != nil {
		return nil, MapGormError(err)
	}
	return states, nil
}

// Upsert inserts or replaces the state row for a channel
func (r *ChannelStateRepository) Upsert(ctx context.Context, state *models.ChannelState) error {
	state.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		UpdateAll: true,
	}).Create(state).Error
	if err != nil {
		return fmt.Errorf("failed to upsert channel state: %w", MapGormError(err))
	}
	return nil
}

// UpsertAll writes a batch of channel states in a single transaction so a
// library reload never leaves the table half updated
func (r *ChannelStateRepository) UpsertAll(ctx context.Context, states []*models.ChannelState) error {
	if len(states) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, state := range states {
			state.UpdatedAt = now
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "channel_id"}},
				UpdateAll: true,
			}).Create(state).Error
			if err != nil {
				return MapGormError(err)
			}
		}
		return nil
	})
}

// Delete removes the persisted state for a channel
func (r *ChannelStateRepository) Delete(ctx context.Context, channelID string) error {
	result := r.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.ChannelState{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel state: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNotIn removes state rows for channels that no longer exist in the
// library. Passing an empty keep list clears the table.
func (r *ChannelStateRepository) DeleteNotIn(ctx context.Context, keepIDs []string) error {
	query := r.db.WithContext(ctx)
	if len(keepIDs) > 0 {
		query = query.Where("channel_id NOT IN ?", keepIDs)
	} else {
		query = query.Where("1 = 1")
	}
	if err := query.Delete(&models.ChannelState{}).Error; err != nil {
		return fmt.Errorf("failed to prune channel states: %w", MapGormError(err))
	}
	return nil
}
