package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/models"
)

type tickerRepository struct {
	db *db.DB
}

// NewTickerRepository creates a new ticker repository
func NewTickerRepository(database *db.DB) TickerRepository {
	return &tickerRepository{db: database}
}

func (r *tickerRepository) Upsert(ctx context.Context, info *models.TickerInfo) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"currency", "long_name", "exchange", "asset_type", "updated_at"}),
	}).Create(info).Error
	if err != nil {
		return fmt.Errorf("failed to upsert ticker %s: %w", info.Ticker, err)
	}
	return nil
}

func (r *tickerRepository) Get(ctx context.Context, ticker string) (*models.TickerInfo, error) {
	var info models.TickerInfo
	if err := r.db.WithContext(ctx).First(&info, "ticker = ?", ticker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ticker %q: %w", ticker, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}
	return &info, nil
}

func (r *tickerRepository) List(ctx context.Context) ([]*models.TickerInfo, error) {
	var infos []*models.TickerInfo
	if err := r.db.WithContext(ctx).Order("ticker").Find(&infos).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	return infos, nil
}

// CurrencyMap maps every known ticker to its native currency.
func (r *tickerRepository) CurrencyMap(ctx context.Context) (map[string]string, error) {
	infos, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(infos))
	for _, info := range infos {
		out[info.Ticker] = info.Currency
	}
	return out, nil
}

// Missing returns the tickers that have no reference data yet.
func (r *tickerRepository) Missing(ctx context.Context, tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	var known []string
	err := r.db.WithContext(ctx).Model(&models.TickerInfo{}).
		Where("ticker IN ?", tickers).Pluck("ticker", &known).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check tickers: %w", err)
	}
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k] = true
	}
	var missing []string
	for _, t := range tickers {
		if !seen[t] {
			missing = append(missing, t)
			seen[t] = true
		}
	}
	return missing, nil
}
