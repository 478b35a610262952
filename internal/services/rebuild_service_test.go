package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/folio/internal/engine"
	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
)

func TestRebuildAllFetchesMissingPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	svc := f.rebuildService(f.fxService(NewMockProvider()), engine.FXStrict)

	result, err := svc.RebuildAll(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", result.BaseCurrency)
	assert.Equal(t, 4, result.Positions)
	assert.Equal(t, 4, result.HistoryRows)
	assert.Empty(t, result.Warnings)

	count, err := f.positions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	info, err := f.tickers.Get(ctx, "EURUSD=X")
	require.NoError(t, err)
	assert.Equal(t, "USD", info.Currency)

	rows, err := f.history.List(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	last := rows[3]
	assert.Equal(t, date("2024-01-05"), last.Date.UTC())
	assert.Equal(t, "USD", last.BaseCurrency)
	assert.InDelta(t, 1199, toFloat(last.TotalValue), 1e-6)
	assert.InDelta(t, 1090, toFloat(last.InvestedValue), 1e-6)
	assert.InDelta(t, 109, toFloat(last.TotalPnL), 1e-6)
}

func TestRebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	svc := f.rebuildService(f.fxService(NewMockProvider()), engine.FXStrict)

	_, err := svc.RebuildAll(ctx, "USD")
	require.NoError(t, err)
	first, err := f.history.List(ctx, nil, nil)
	require.NoError(t, err)

	_, err = svc.RebuildAll(ctx, "USD")
	require.NoError(t, err)
	second, err := f.history.List(ctx, nil, nil)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].TotalValue.Equal(second[i].TotalValue))
		assert.True(t, first[i].InvestedValue.Equal(second[i].InvestedValue))
	}
	count, err := f.positions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRebuildHistoryStrictWithoutRates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	svc := f.rebuildService(nil, engine.FXStrict)

	_, err := svc.RebuildPositions(ctx)
	require.NoError(t, err)
	_, err = svc.RebuildHistory(ctx, "USD")
	var missing *apperrors.ErrMissingFXRate
	require.True(t, errors.As(err, &missing), "expected missing FX rate, got %v", err)
	assert.Equal(t, "EUR", missing.From)
	assert.Equal(t, "USD", missing.To)
}

func TestRebuildHistoryPermissiveWarns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	svc := f.rebuildService(nil, engine.FXPermissive)

	result, err := svc.RebuildAll(ctx, "USD")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, engine.FXWarningMissing, w.Kind)
	assert.Equal(t, "EUR", w.From)
	assert.Equal(t, "USD", w.To)

	rows, err := f.history.List(ctx, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.InDelta(t, 1100, toFloat(rows[len(rows)-1].TotalValue), 1e-6)
}

func TestRebuildDefaultsToConfiguredBase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	svc := f.rebuildService(f.fxService(NewMockProvider()), engine.FXStrict)

	result, err := svc.RebuildAll(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "USD", result.BaseCurrency)
}

func TestRebuildHistoryCountsCashMovements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEURLedger(t)
	require.NoError(t, f.txs.Create(ctx, &models.Transaction{
		Date: date("2024-01-01"), Type: models.TransactionDeposit, Ticker: "CASH",
		Currency: "EUR", Value: dec(500),
	}))
	svc := f.rebuildService(f.fxService(NewMockProvider()), engine.FXStrict)

	result, err := svc.RebuildAll(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Positions)
	assert.Equal(t, 5, result.HistoryRows)

	rows, err := f.history.List(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, date("2024-01-01"), rows[0].Date.UTC())
	assert.InDelta(t, 545, toFloat(rows[0].GrossInvested), 1e-6)
	assert.InDelta(t, 0, toFloat(rows[0].TotalValue), 1e-6)

	last := rows[4]
	assert.InDelta(t, 1635, toFloat(last.InvestedValue), 1e-6)
	assert.InDelta(t, 1199, toFloat(last.TotalValue), 1e-6)
	assert.InDelta(t, -436, toFloat(last.TotalPnL), 1e-6)
}
