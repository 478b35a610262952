package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
)

func rebuiltFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.seedEURLedger(t)
	_, err := f.rebuildService(f.fxService(NewMockProvider()), engine.FXStrict).RebuildAll(context.Background(), "USD")
	require.NoError(t, err)
	return f
}

func TestReportingReadsCacheAndStorageAlike(t *testing.T) {
	ctx := context.Background()
	f := rebuiltFixture(t)

	for name, svc := range map[string]ReportingService{
		"cache":   f.reportingService(true),
		"storage": f.reportingService(false),
	} {
		t.Run(name, func(t *testing.T) {
			start := date("2024-01-03")
			history, err := svc.GetHistory(ctx, &start, nil)
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.Equal(t, start, history[0].Date)
			assert.InDelta(t, 1199, history[2].TotalValue, 1e-6)

			rows, err := svc.GetPositions(ctx, &models.PositionFilter{Ticker: "sap.de"})
			require.NoError(t, err)
			assert.Len(t, rows, 4)

			snap, err := svc.GetSnapshot(ctx, date("2024-01-04"))
			require.NoError(t, err)
			require.Len(t, snap, 1)
			assert.Equal(t, date("2024-01-04"), snap[0].Date)
			assert.InDelta(t, 1050, snap[0].Value, 1e-6)
		})
	}
}

func TestReportingStats(t *testing.T) {
	ctx := context.Background()
	f := rebuiltFixture(t)
	svc := f.reportingService(true)

	report, err := svc.GetStats(ctx, date("2024-01-05"), "")
	require.NoError(t, err)
	require.Len(t, report.Tickers, 1)
	sap := report.Tickers[0]
	assert.Equal(t, "SAP.DE", sap.Ticker)
	assert.Equal(t, "EUR", sap.Currency)
	assert.InDelta(t, 1100, sap.MarketValue, 1e-6)
	assert.InDelta(t, 100, sap.TotalPnL, 1e-6)
	require.NotNil(t, sap.TotalPnLPct)
	assert.InDelta(t, 10, *sap.TotalPnLPct, 1e-9)
	assert.Nil(t, sap.Periods["1Y"])

	require.NotNil(t, report.Portfolio)
	assert.Equal(t, engine.PortfolioTicker, report.Portfolio.Ticker)
	assert.Equal(t, "USD", report.Portfolio.Currency)
	assert.InDelta(t, 1199, report.Portfolio.MarketValue, 1e-6)
	assert.InDelta(t, 1090, report.Portfolio.CumInvested, 1e-6)

	only, err := svc.GetStats(ctx, date("2024-01-05"), "portfolio")
	require.NoError(t, err)
	assert.Empty(t, only.Tickers)
	assert.NotNil(t, only.Portfolio)
}

func TestReportingWeights(t *testing.T) {
	ctx := context.Background()
	f := rebuiltFixture(t)

	for _, svc := range []ReportingService{f.reportingService(true), f.reportingService(false)} {
		weights, err := svc.GetWeights(ctx, date("2024-01-05"))
		require.NoError(t, err)
		require.Len(t, weights, 1)
		assert.Equal(t, "SAP.DE", weights[0].Ticker)
		assert.InDelta(t, 1199, weights[0].Value, 1e-6)
		require.NotNil(t, weights[0].WeightPct)
		assert.InDelta(t, 100, *weights[0].WeightPct, 1e-9)
	}
}

func TestReportingEmpty(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).reportingService(true)

	history, err := svc.GetHistory(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, history)

	report, err := svc.GetStats(ctx, date("2024-01-05"), "")
	require.NoError(t, err)
	assert.Empty(t, report.Tickers)
	assert.Nil(t, report.Portfolio)

	weights, err := svc.GetWeights(ctx, date("2024-01-05"))
	require.NoError(t, err)
	assert.Empty(t, weights)
}
