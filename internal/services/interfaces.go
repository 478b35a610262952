package services

import (
	"context"
	"time"

	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
)

// TransactionService defines the interface for ledger operations
type TransactionService interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	CreateTransactionsBatch(ctx context.Context, txs []*models.Transaction) ([]*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionCount(ctx context.Context, filter *models.TransactionFilter) (int, error)
}

// MarketDataProvider fetches daily prices and instrument reference data.
// FX pairs are fetched like any other ticker, e.g. EURUSD=X.
type MarketDataProvider interface {
	FetchPrices(ctx context.Context, tickers []string, start, end time.Time) ([]*models.Price, error)
	FetchTickerInfo(ctx context.Context, ticker string) (*models.TickerInfo, error)
}

// FXService makes sure the price table holds the pairs a computation needs
type FXService interface {
	EnsurePairs(ctx context.Context, currencies []string, target string, prices []engine.PriceObservation) ([]engine.PriceObservation, error)
}

// RebuildService recomputes the derived tables
type RebuildService interface {
	RebuildPositions(ctx context.Context) (*RebuildResult, error)
	RebuildHistory(ctx context.Context, baseCurrency string) (*RebuildResult, error)
	RebuildAll(ctx context.Context, baseCurrency string) (*RebuildResult, error)
}

// RefreshService pulls market data from the provider into storage
type RefreshService interface {
	RefreshAll(ctx context.Context) (*RefreshResult, error)
	RefreshTickerInfo(ctx context.Context, tickers []string) (int, error)
	ListTickers(ctx context.Context) ([]*models.TickerInfo, error)
	ListPrices(ctx context.Context, filter *models.PriceFilter) ([]*models.Price, error)
}

// ReportingService serves the results of the last complete rebuild
type ReportingService interface {
	GetHistory(ctx context.Context, start, end *time.Time) ([]engine.HistoryRow, error)
	GetPositions(ctx context.Context, filter *models.PositionFilter) ([]engine.PositionRow, error)
	GetSnapshot(ctx context.Context, asOf time.Time) ([]engine.PositionRow, error)
	GetStats(ctx context.Context, asOf time.Time, ticker string) (*StatsReport, error)
	GetWeights(ctx context.Context, asOf time.Time) ([]engine.Weight, error)
}

// TaskRunner runs background work one task at a time
type TaskRunner interface {
	Submit(kind string, fn TaskFunc) *models.TaskInfo
	Get(id string) (*models.TaskInfo, bool)
	Wait(ctx context.Context, id string) (*models.TaskInfo, error)
}

// RebuildResult summarizes one rebuild.
type RebuildResult struct {
	BaseCurrency string             `json:"base_currency,omitempty"`
	Positions    int                `json:"positions"`
	HistoryRows  int                `json:"history_rows"`
	Warnings     []engine.FXWarning `json:"warnings"`
	Duration     string             `json:"duration"`
}

// RefreshResult summarizes one market data refresh.
type RefreshResult struct {
	Tickers int      `json:"tickers"`
	Prices  int      `json:"prices"`
	Failed  []string `json:"failed,omitempty"`
}

// StatsReport is the per-ticker stats plus the portfolio-level record.
type StatsReport struct {
	AsOf      time.Time            `json:"as_of"`
	Tickers   []engine.StatsRecord `json:"tickers"`
	Portfolio *engine.StatsRecord  `json:"portfolio"`
}
