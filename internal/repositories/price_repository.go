package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/models"
)

const upsertBatchSize = 500

type priceRepository struct {
	db *db.DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(database *db.DB) PriceRepository {
	return &priceRepository{db: database}
}

// UpsertBulk inserts prices, overwriting existing (ticker, date) rows.
func (r *priceRepository) UpsertBulk(ctx context.Context, prices []*models.Price) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	// Postgres rejects an upsert batch touching the same key twice.
	byKey := make(map[string]*models.Price, len(prices))
	rows := make([]*models.Price, 0, len(prices))
	for _, p := range prices {
		p.Date = models.DateOnly(p.Date)
		key := p.Ticker + "|" + p.Date.Format("2006-01-02")
		if prev, ok := byKey[key]; ok {
			*prev = *p
			continue
		}
		byKey[key] = p
		rows = append(rows, p)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert prices: %w", err)
	}
	return len(rows), nil
}

func (r *priceRepository) applyFilter(query *gorm.DB, prefix string, filter *models.PriceFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if len(filter.Tickers) > 0 {
		query = query.Where(prefix+"ticker IN ?", filter.Tickers)
	}
	if filter.StartDate != nil {
		query = query.Where(prefix+"date >= ?", models.DateOnly(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where(prefix+"date <= ?", models.DateOnly(*filter.EndDate))
	}
	return query
}

func (r *priceRepository) List(ctx context.Context, filter *models.PriceFilter) ([]*models.Price, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.Price{}), "", filter)
	var prices []*models.Price
	if err := query.Order("date ASC, ticker ASC").Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	return prices, nil
}

// ListWithCurrency joins each close with its instrument's native currency.
// Prices without reference data get an empty currency.
func (r *priceRepository) ListWithCurrency(ctx context.Context, filter *models.PriceFilter) ([]*models.PricePoint, error) {
	query := r.db.WithContext(ctx).
		Table("prices p").
		Select("p.ticker, p.date, p.close, COALESCE(t.currency, '') AS currency, COALESCE(t.asset_type, '') AS asset_type").
		Joins("LEFT JOIN tickers t ON t.ticker = p.ticker")
	query = r.applyFilter(query, "p.", filter)

	var points []*models.PricePoint
	if err := query.Order("p.date ASC, p.ticker ASC").Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to list prices with currency: %w", err)
	}
	return points, nil
}

func (r *priceRepository) Tickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.WithContext(ctx).Model(&models.Price{}).Distinct("ticker").Order("ticker").Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list price tickers: %w", err)
	}
	return tickers, nil
}

// LatestDate returns the newest observation date of ticker, nil if none.
func (r *priceRepository) LatestDate(ctx context.Context, ticker string) (*time.Time, error) {
	var latest models.Price
	err := r.db.WithContext(ctx).Where("ticker = ?", ticker).Order("date DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price date: %w", err)
	}
	if latest.Ticker == "" {
		return nil, nil
	}
	d := models.DateOnly(latest.Date)
	return &d, nil
}
