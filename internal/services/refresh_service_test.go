package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/folio/internal/models"
)

func TestRefreshAllIsIncremental(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	require.NoError(t, f.txs.Create(ctx, &models.Transaction{
		Date: date("2024-01-03"), Type: models.TransactionBuy, Ticker: "ZZZZ",
		Currency: "USD", Shares: dec(1), Value: dec(10),
	}))

	svc := NewRefreshService(NewMockProvider(), f.txs, f.tickers, f.prices, f.cache, f.keys, 30, nil).(*refreshService)
	svc.now = func() time.Time { return date("2024-01-10") }

	result, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Tickers)
	// 2024-01-05 is refetched, then the 8th through the 10th.
	assert.Equal(t, 4, result.Prices)
	assert.Equal(t, []string{"ZZZZ"}, result.Failed)

	prices, err := svc.ListPrices(ctx, &models.PriceFilter{Tickers: []string{"SAP.DE"}})
	require.NoError(t, err)
	require.Len(t, prices, 7)
	assert.True(t, prices[0].Close.Equal(dec(100)))
	assert.True(t, prices[6].Close.Equal(dec(180)))

	tickers, err := svc.ListTickers(ctx)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, "SAP.DE", tickers[0].Ticker)
}

func TestRefreshTickerInfoPairsNeedNoProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewRefreshService(NewMockProvider(), f.txs, f.tickers, f.prices, nil, f.keys, 30, nil)

	n, err := svc.RefreshTickerInfo(ctx, []string{"CHFJPY=X", "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := f.tickers.Get(ctx, "CHFJPY=X")
	require.NoError(t, err)
	assert.Equal(t, "JPY", info.Currency)

	_, err = svc.RefreshTickerInfo(ctx, []string{"NOPE"})
	assert.Error(t, err)
}

func TestListPricesIsCachedUntilRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	svc := NewRefreshService(NewMockProvider(), f.txs, f.tickers, f.prices, f.cache, f.keys, 30, nil).(*refreshService)
	svc.now = func() time.Time { return date("2024-01-08") }

	first, err := svc.ListPrices(ctx, nil)
	require.NoError(t, err)
	require.Len(t, first, 4)

	_, err = f.prices.UpsertBulk(ctx, []*models.Price{price("SAP.DE", "2024-01-06", 111)})
	require.NoError(t, err)
	cached, err := svc.ListPrices(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, cached, 4)

	_, err = svc.RefreshAll(ctx)
	require.NoError(t, err)
	fresh, err := svc.ListPrices(ctx, nil)
	require.NoError(t, err)
	assert.Greater(t, len(fresh), 4)
}
