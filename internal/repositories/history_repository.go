package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/models"
)

type historyRepository struct {
	db *db.DB
}

// NewHistoryRepository creates a new portfolio history repository
func NewHistoryRepository(database *db.DB) HistoryRepository {
	return &historyRepository{db: database}
}

func (r *historyRepository) ReplaceAll(ctx context.Context, rows []*models.PortfolioHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := db.LockRebuild(tx); err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PortfolioHistory{}).Error; err != nil {
			return fmt.Errorf("failed to clear portfolio history: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, upsertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert portfolio history: %w", err)
		}
		return nil
	})
}

func (r *historyRepository) List(ctx context.Context, start, end *time.Time) ([]*models.PortfolioHistory, error) {
	query := r.db.WithContext(ctx).Model(&models.PortfolioHistory{})
	if start != nil {
		query = query.Where("date >= ?", models.DateOnly(*start))
	}
	if end != nil {
		query = query.Where("date <= ?", models.DateOnly(*end))
	}
	var rows []*models.PortfolioHistory
	if err := query.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list portfolio history: %w", err)
	}
	return rows, nil
}

func (r *historyRepository) Latest(ctx context.Context) (*models.PortfolioHistory, error) {
	var row models.PortfolioHistory
	if err := r.db.WithContext(ctx).Order("date DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("portfolio history: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest portfolio history: %w", err)
	}
	return &row, nil
}
