package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
)

func TestBuildPositionsBuyAndHold(t *testing.T) {
	txs := []Transaction{buy("2024-01-01", "XYZ", "USD", 10, 1000)}
	prices := []PriceObservation{
		px("XYZ", "2024-01-01", 100, "USD"),
		px("XYZ", "2024-01-10", 110, "USD"),
	}

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 10)
	assert.Empty(t, res.Warnings)

	mid, ok := rowOn(res.Rows, "XYZ", "2024-01-05")
	require.True(t, ok)
	assert.Equal(t, 100.0, mid.Close)
	assert.Equal(t, 0.0, mid.DailyInvested)

	last, ok := rowOn(res.Rows, "XYZ", "2024-01-10")
	require.True(t, ok)
	assert.Equal(t, 10.0, last.Shares)
	assert.InDelta(t, 1100, last.Value, 1e-9)
	assert.InDelta(t, 1000, last.GrossInvested, 1e-9)
	assert.Equal(t, 0.0, last.GrossWithdrawn)
	assert.InDelta(t, 100, last.TotalPnL, 1e-9)
	assert.Equal(t, "USD", last.Currency)
}

func TestBuildPositionsCrossCurrency(t *testing.T) {
	txs := []Transaction{buy("2024-01-02", "ABC", "EUR", 10, 1000)}
	prices := []PriceObservation{
		px("ABC", "2024-01-02", 120, "USD"),
		px("EURUSD=X", "2024-01-02", 1.1, ""),
	}

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	row, ok := rowOn(res.Rows, "ABC", "2024-01-02")
	require.True(t, ok)
	assert.Equal(t, "USD", row.Currency)
	assert.InDelta(t, 1100, row.GrossInvested, 1e-9)
	assert.InDelta(t, 100, row.TotalPnL, 1e-9)
}

func TestBuildPositionsInversePair(t *testing.T) {
	txs := []Transaction{buy("2024-01-02", "ABC", "EUR", 10, 1000)}
	prices := []PriceObservation{
		px("ABC", "2024-01-02", 120, "USD"),
		px("USDEUR=X", "2023-12-29", 0.8, ""),
	}

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	row, ok := rowOn(res.Rows, "ABC", "2024-01-02")
	require.True(t, ok)
	assert.InDelta(t, 1250, row.GrossInvested, 1e-9)
}

func TestBuildPositionsMarketCurrencyFallbacks(t *testing.T) {
	txs := []Transaction{
		buy("2024-01-01", "MAPPED", "USD", 1, 10),
		buy("2024-01-01", "OWN", "USD", 1, 10),
	}
	prices := []PriceObservation{px("USDEUR=X", "2024-01-01", 0.5, "")}

	res, err := BuildPositions(txs, prices, map[string]string{"MAPPED": "eur"}, Options{})
	require.NoError(t, err)
	mapped, _ := rowOn(res.Rows, "MAPPED", "2024-01-01")
	own, _ := rowOn(res.Rows, "OWN", "2024-01-01")
	assert.Equal(t, "EUR", mapped.Currency)
	assert.InDelta(t, 5, mapped.GrossInvested, 1e-9)
	assert.Equal(t, "USD", own.Currency)
	assert.InDelta(t, 10, own.GrossInvested, 1e-9)
}

func TestBuildPositionsMissingFX(t *testing.T) {
	txs := []Transaction{buy("2024-01-02", "ABC", "GBP", 10, 1000)}
	prices := []PriceObservation{px("ABC", "2024-01-02", 120, "USD")}

	t.Run("strict", func(t *testing.T) {
		_, err := BuildPositions(txs, prices, nil, Options{Policy: FXStrict})
		var missing *apperrors.ErrMissingFXRate
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "GBP", missing.From)
		assert.Equal(t, "USD", missing.To)
		assert.Equal(t, day("2024-01-02"), missing.Date)
	})

	t.Run("permissive", func(t *testing.T) {
		res, err := BuildPositions(txs, prices, nil, Options{Policy: FXPermissive})
		require.NoError(t, err)
		row, _ := rowOn(res.Rows, "ABC", "2024-01-02")
		assert.InDelta(t, 1000, row.GrossInvested, 1e-9)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, FXWarningMissing, res.Warnings[0].Kind)
	})
}

func TestBuildPositionsShort(t *testing.T) {
	txs := []Transaction{
		buy("2024-01-01", "XYZ", "USD", 5, 500),
		sell("2024-01-02", "XYZ", "USD", 10, 1100),
	}
	prices := []PriceObservation{
		px("XYZ", "2024-01-01", 100, "USD"),
		px("XYZ", "2024-01-02", 110, "USD"),
	}

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	row, ok := rowOn(res.Rows, "XYZ", "2024-01-02")
	require.True(t, ok)
	assert.Equal(t, -5.0, row.Shares)
	assert.InDelta(t, -550, row.Value, 1e-9)
	assert.InDelta(t, 1100, row.GrossWithdrawn, 1e-9)
	assert.InDelta(t, 50, row.TotalPnL, 1e-9)
}

func TestBuildPositionsSameDayAggregation(t *testing.T) {
	txs := []Transaction{
		buy("2024-01-01", "XYZ", "USD", 10, 1000),
		sell("2024-01-01", "XYZ", "USD", 4, 440),
		buy("2024-01-01", "XYZ", "USD", 2, 210),
		{Date: day("2024-01-01"), Type: models.TransactionDeposit, Ticker: "CASH", Currency: "USD", Value: 5000},
		{Date: day("2024-01-03"), Type: models.TransactionWithdraw, Ticker: "CASH", Currency: "USD", Value: 100},
	}
	prices := []PriceObservation{px("XYZ", "2024-01-01", 100, "USD")}

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	for _, r := range res.Rows {
		assert.Equal(t, "XYZ", r.Ticker, "cash movements never become positions")
	}
	require.Len(t, res.Rows, 3, "horizon extends to the newest transaction")

	first := res.Rows[0]
	assert.Equal(t, 8.0, first.Shares)
	assert.InDelta(t, 1210, first.DailyInvested, 1e-9)
	assert.InDelta(t, 440, first.DailyWithdrawn, 1e-9)
}

func TestBuildPositionsImpliedPriceBeforeFirstClose(t *testing.T) {
	txs := []Transaction{buy("2024-01-01", "XYZ", "USD", 10, 1000)}
	prices := []PriceObservation{px("XYZ", "2024-01-03", 105, "USD")}

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, 100.0, res.Rows[0].Close)
	assert.Equal(t, 100.0, res.Rows[1].Close)
	assert.Equal(t, 105.0, res.Rows[2].Close)
}

func TestBuildPositionsHorizon(t *testing.T) {
	txs := []Transaction{buy("2024-01-01", "XYZ", "USD", 1, 100)}
	prices := []PriceObservation{px("XYZ", "2024-01-31", 100, "USD")}

	res, err := BuildPositions(txs, prices, nil, Options{Horizon: day("2024-01-05")})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)

	res, err = BuildPositions(txs, prices, nil, Options{Horizon: day("2023-12-01")})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestBuildPositionsEmpty(t *testing.T) {
	res, err := BuildPositions(nil, []PriceObservation{px("XYZ", "2024-01-01", 1, "USD")}, nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func mixedLedger() ([]Transaction, []PriceObservation) {
	txs := []Transaction{
		buy("2024-01-01", "AAA", "USD", 10, 1000),
		buy("2024-01-03", "BBB", "EUR", 4, 400),
		sell("2024-01-05", "AAA", "USD", 3, 330),
		buy("2024-01-06", "BBB", "USD", 2, 230),
		sell("2024-01-08", "AAA", "USD", 12, 1500),
	}
	prices := []PriceObservation{
		px("AAA", "2024-01-01", 100, "USD"),
		px("AAA", "2024-01-04", 108, "USD"),
		px("AAA", "2024-01-09", 120, "USD"),
		px("BBB", "2024-01-03", 100, "EUR"),
		px("BBB", "2024-01-07", 95, "EUR"),
		px("EURUSD=X", "2024-01-01", 1.1, ""),
		px("EURUSD=X", "2024-01-06", 1.15, ""),
	}
	return txs, prices
}

func TestBuildPositionsIdempotent(t *testing.T) {
	txs, prices := mixedLedger()

	first, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	second, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildPositionsInvariants(t *testing.T) {
	txs, prices := mixedLedger()

	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)

	perTicker := make(map[string][]PositionRow)
	for _, r := range res.Rows {
		assert.InDelta(t, r.Value+r.GrossWithdrawn-r.GrossInvested, r.TotalPnL, 1e-6)
		perTicker[r.Ticker] = append(perTicker[r.Ticker], r)
	}
	for ticker, rows := range perTicker {
		for i := 1; i < len(rows); i++ {
			assert.Equal(t, rows[i-1].Date.AddDate(0, 0, 1), rows[i].Date, "gap in %s", ticker)
		}
		assert.Equal(t, day("2024-01-09"), rows[len(rows)-1].Date)
	}
	aaa, _ := rowOn(res.Rows, "AAA", "2024-01-09")
	assert.Equal(t, -5.0, aaa.Shares)
}
