package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/models"
)

type positionRepository struct {
	db *db.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(database *db.DB) PositionRepository {
	return &positionRepository{db: database}
}

// ReplaceAll deletes every position and inserts rows in one transaction, so
// readers see either the previous table or the new one.
func (r *positionRepository) ReplaceAll(ctx context.Context, rows []*models.Position) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := db.LockRebuild(tx); err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Position{}).Error; err != nil {
			return fmt.Errorf("failed to clear positions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, upsertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert positions: %w", err)
		}
		return nil
	})
}

func (r *positionRepository) List(ctx context.Context, filter *models.PositionFilter) ([]*models.Position, error) {
	query := r.db.WithContext(ctx).Model(&models.Position{})
	if filter != nil {
		if filter.StartDate != nil {
			query = query.Where("date >= ?", models.DateOnly(*filter.StartDate))
		}
		if filter.EndDate != nil {
			query = query.Where("date <= ?", models.DateOnly(*filter.EndDate))
		}
		if filter.Ticker != "" {
			query = query.Where("ticker = ?", filter.Ticker)
		}
	}
	var rows []*models.Position
	if err := query.Order("date ASC, ticker ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return rows, nil
}

func (r *positionRepository) Count(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Position{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}
	return int(count), nil
}
