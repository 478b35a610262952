package repositories

import (
	"context"
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

// TransactionRepository defines the interface for transaction data operations
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	CreateBatch(ctx context.Context, txs []*models.Transaction) ([]*models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error)
	GetCount(ctx context.Context, filter *models.TransactionFilter) (int, error)
	Delete(ctx context.Context, id string) error
	ListTickers(ctx context.Context) ([]string, error)
	ListCurrencies(ctx context.Context) ([]string, error)
}

// TickerRepository stores instrument reference data
type TickerRepository interface {
	Upsert(ctx context.Context, info *models.TickerInfo) error
	Get(ctx context.Context, ticker string) (*models.TickerInfo, error)
	List(ctx context.Context) ([]*models.TickerInfo, error)
	CurrencyMap(ctx context.Context) (map[string]string, error)
	Missing(ctx context.Context, tickers []string) ([]string, error)
}

// PriceRepository stores daily observations, FX pairs included
type PriceRepository interface {
	UpsertBulk(ctx context.Context, prices []*models.Price) (int, error)
	List(ctx context.Context, filter *models.PriceFilter) ([]*models.Price, error)
	ListWithCurrency(ctx context.Context, filter *models.PriceFilter) ([]*models.PricePoint, error)
	Tickers(ctx context.Context) ([]string, error)
	LatestDate(ctx context.Context, ticker string) (*time.Time, error)
}

// PositionRepository stores the derived positions table. Writers replace it
// as a whole.
type PositionRepository interface {
	ReplaceAll(ctx context.Context, rows []*models.Position) error
	List(ctx context.Context, filter *models.PositionFilter) ([]*models.Position, error)
	Count(ctx context.Context) (int, error)
}

// HistoryRepository stores the derived portfolio history table
type HistoryRepository interface {
	ReplaceAll(ctx context.Context, rows []*models.PortfolioHistory) error
	List(ctx context.Context, start, end *time.Time) ([]*models.PortfolioHistory, error)
	Latest(ctx context.Context) (*models.PortfolioHistory, error)
}
