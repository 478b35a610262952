package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/folio/internal/cache"
	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/repositories"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func price(ticker, d string, close float64) *models.Price {
	c := dec(close)
	return &models.Price{Ticker: ticker, Date: date(d), Open: c, High: c, Low: c, Close: c}
}

// fixture is a sqlite-backed set of repositories with a small EUR ledger.
type fixture struct {
	txs       repositories.TransactionRepository
	tickers   repositories.TickerRepository
	prices    repositories.PriceRepository
	positions repositories.PositionRepository
	history   repositories.HistoryRepository
	cache     *cache.Memory
	keys      cache.Keys
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Connect(&db.Config{Driver: db.DriverSQLite, SQLitePath: t.TempDir() + "/services.db"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { database.Close() })

	return &fixture{
		txs:       repositories.NewTransactionRepository(database),
		tickers:   repositories.NewTickerRepository(database),
		prices:    repositories.NewPriceRepository(database),
		positions: repositories.NewPositionRepository(database),
		history:   repositories.NewHistoryRepository(database),
		cache:     cache.NewMemory(time.Minute),
		keys:      cache.Keys{Prefix: "test"},
	}
}

// seedEURLedger stores one SAP.DE purchase of 10 shares at 100 EUR on
// 2024-01-02 and closes up to 110 on 2024-01-05. No FX rates are stored.
func (f *fixture) seedEURLedger(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.tickers.Upsert(ctx, &models.TickerInfo{Ticker: "SAP.DE", Currency: "EUR"}))
	_, err := f.prices.UpsertBulk(ctx, []*models.Price{
		price("SAP.DE", "2024-01-02", 100),
		price("SAP.DE", "2024-01-03", 100),
		price("SAP.DE", "2024-01-04", 105),
		price("SAP.DE", "2024-01-05", 110),
	})
	require.NoError(t, err)
	require.NoError(t, f.txs.Create(ctx, &models.Transaction{
		Date: date("2024-01-02"), Type: models.TransactionBuy, Ticker: "SAP.DE",
		Currency: "EUR", Shares: dec(10), Value: dec(1000),
	}))
}

func (f *fixture) fxService(provider MarketDataProvider) *FXServiceImpl {
	fx := NewFXService(provider, f.prices, f.tickers, 5*time.Second, 10, nil)
	fx.now = func() time.Time { return date("2024-01-05") }
	return fx
}

func (f *fixture) rebuildService(fx FXService, policy engine.FXPolicy) RebuildService {
	return NewRebuildService(RebuildDeps{
		Transactions: f.txs,
		Tickers:      f.tickers,
		Prices:       f.prices,
		Positions:    f.positions,
		History:      f.history,
		FX:           fx,
		Cache:        f.cache,
		Keys:         f.keys,
		CacheTTL:     time.Minute,
	}, engine.Options{BaseCurrency: "USD", Policy: policy}, nil)
}

func (f *fixture) reportingService(withCache bool) ReportingService {
	deps := ReportingDeps{Positions: f.positions, History: f.history, Prices: f.prices, Keys: f.keys}
	if withCache {
		deps.Cache = f.cache
	}
	return NewReportingService(deps, engine.Options{BaseCurrency: "USD"}, nil)
}
