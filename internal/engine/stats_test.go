package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTWR(t *testing.T) {
	assert.Nil(t, TWR(nil))
	assert.Nil(t, TWR([]StatPoint{{Date: day("2024-01-01"), Value: 100}}))

	r := TWR([]StatPoint{
		{Date: day("2024-01-01"), Value: 100},
		{Date: day("2024-01-02"), Value: 110},
		{Date: day("2024-01-03"), Value: 121},
	})
	require.NotNil(t, r)
	assert.InDelta(t, 0.21, *r, 1e-9)

	flat := TWR([]StatPoint{
		{Date: day("2024-01-01"), Value: 0},
		{Date: day("2024-01-02"), Value: 50},
	})
	require.NotNil(t, flat)
	assert.Equal(t, 0.0, *flat)
}

func TestTWRNeutralToCashFlow(t *testing.T) {
	txs := []Transaction{
		buy("2024-01-01", "XYZ", "USD", 10, 1000),
		buy("2024-01-05", "XYZ", "USD", 5, 500),
		sell("2024-01-07", "XYZ", "USD", 3, 300),
	}
	prices := []PriceObservation{px("XYZ", "2024-01-01", 100, "USD")}
	res, err := BuildPositions(txs, prices, nil, Options{Horizon: day("2024-01-10")})
	require.NoError(t, err)

	stats := ComputeStats(res.Rows, day("2024-01-10"), []Window{{Label: "9D", Days: 9}, {Label: "1W", Days: 7}})
	require.Len(t, stats, 1)
	full := stats[0].Periods["9D"]
	require.NotNil(t, full)
	require.NotNil(t, full.TWRPct)
	assert.InDelta(t, 0, *full.TWRPct, 1e-9)
	assert.InDelta(t, 0, full.PnLAbs, 1e-9)

	week := stats[0].Periods["1W"]
	require.NotNil(t, week)
	assert.Equal(t, day("2024-01-03"), week.StartDate)
	assert.InDelta(t, 500, week.CashIn, 1e-9)
	assert.InDelta(t, 300, week.CashOut, 1e-9)
	assert.InDelta(t, 1000, week.MVStart, 1e-9)
	assert.InDelta(t, 1200, week.MVEnd, 1e-9)
}

func TestComputeStatsNullWindows(t *testing.T) {
	txs := []Transaction{buy("2024-01-01", "XYZ", "USD", 10, 1000)}
	prices := []PriceObservation{
		px("XYZ", "2024-01-01", 100, "USD"),
		px("XYZ", "2024-01-10", 110, "USD"),
	}
	res, err := BuildPositions(txs, prices, nil, Options{})
	require.NoError(t, err)

	stats := ComputeStats(res.Rows, day("2024-01-10"), nil)
	require.Len(t, stats, 1)
	rec := stats[0]
	assert.Equal(t, "USD", rec.Currency)
	assert.InDelta(t, 1100, rec.MarketValue, 1e-9)
	require.NotNil(t, rec.TotalPnLPct)
	assert.InDelta(t, 10, *rec.TotalPnLPct, 1e-9)

	require.Len(t, rec.Periods, len(DefaultWindows))
	require.NotNil(t, rec.Periods["1W"])
	assert.InDelta(t, 10, *rec.Periods["1W"].TWRPct, 1e-9)
	for _, label := range []string{"1M", "3M", "6M", "1Y"} {
		v, ok := rec.Periods[label]
		assert.True(t, ok, label)
		assert.Nil(t, v, label)
	}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"1Y":null`)
}

func TestComputeStatsSkipsYoungTickers(t *testing.T) {
	rows := []PositionRow{{Date: day("2024-02-01"), Ticker: "NEW", Currency: "USD"}}
	assert.Empty(t, ComputeStats(rows, day("2024-01-01"), nil))

	zero := ComputeStats([]PositionRow{{Date: day("2024-01-01"), Ticker: "Z", Currency: "USD"}}, day("2024-01-01"), nil)
	require.Len(t, zero, 1)
	assert.Nil(t, zero[0].TotalPnLPct)
}

func TestPeriodBaselineAtAsOf(t *testing.T) {
	points := []StatPoint{{Date: day("2024-01-01"), Value: 1}}
	assert.Nil(t, Period(points, day("2024-01-01"), Window{Label: "0D"}))
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		asOf   string
		window int
		want   string
	}{
		{"2024-03-31", 0, "2024-03-24"},
		{"2024-03-31", 1, "2024-02-29"},
		{"2024-03-31", 3, "2023-09-30"},
		{"2024-03-31", 4, "2023-03-31"},
		{"2024-05-31", 2, "2024-02-29"},
		{"2024-02-29", 4, "2023-02-28"},
		{"2024-02-29", 1, "2024-01-29"},
		{"2024-01-31", 1, "2023-12-31"},
		{"2024-03-15", 1, "2024-02-15"},
	}
	for _, tt := range tests {
		w := DefaultWindows[tt.window]
		t.Run(tt.asOf+"/"+w.Label, func(t *testing.T) {
			assert.Equal(t, day(tt.want), w.Start(day(tt.asOf)))
		})
	}
}

func TestPortfolioStats(t *testing.T) {
	history := []HistoryRow{
		{Date: day("2024-01-01"), TotalValue: 1000, InvestedValue: 1000, GrossInvested: 1000},
		{Date: day("2024-01-02"), TotalValue: 1600, InvestedValue: 1500, GrossInvested: 500, TotalPnL: 100},
		{Date: day("2024-01-09"), TotalValue: 1800, InvestedValue: 1500, TotalPnL: 300},
	}

	rec := PortfolioStats(history, "USD", day("2024-01-09"), nil)
	require.NotNil(t, rec)
	assert.Equal(t, PortfolioTicker, rec.Ticker)
	assert.Equal(t, 1500.0, rec.CumInvested)
	assert.InDelta(t, 20, *rec.TotalPnLPct, 1e-9)
	week := rec.Periods["1W"]
	require.NotNil(t, week)
	assert.Equal(t, day("2024-01-02"), week.StartDate)
	assert.InDelta(t, 12.5, *week.TWRPct, 1e-9)

	assert.Nil(t, PortfolioStats(history, "USD", day("2023-12-31"), nil))
}

func TestSnapshot(t *testing.T) {
	rows := []PositionRow{
		{Date: day("2024-01-01"), Ticker: "B", Shares: 1},
		{Date: day("2024-01-03"), Ticker: "A", Shares: 3},
		{Date: day("2024-01-01"), Ticker: "A", Shares: 1},
		{Date: day("2024-01-02"), Ticker: "A", Shares: 2},
	}

	snap := Snapshot(rows, day("2024-01-02"))
	require.Len(t, snap, 2)
	assert.Equal(t, "A", snap[0].Ticker)
	assert.Equal(t, 2.0, snap[0].Shares)
	assert.Equal(t, "B", snap[1].Ticker)

	assert.Empty(t, Snapshot(rows, day("2023-12-31")))

	h, ok := LatestHistory([]HistoryRow{{Date: day("2024-01-01")}, {Date: day("2024-01-05")}}, day("2024-01-04"))
	require.True(t, ok)
	assert.Equal(t, day("2024-01-01"), h.Date)
}

func TestWeights(t *testing.T) {
	rows := []ValuedRow{
		{Date: day("2024-01-01"), Ticker: "A", Value: 300},
		{Date: day("2024-01-01"), Ticker: "B", Value: 100},
		{Date: day("2024-01-02"), Ticker: "B", Value: 0},
		{Date: day("2024-01-02"), Ticker: "A", Value: 0},
	}

	w := Weights(rows, day("2024-01-01"))
	require.Len(t, w, 2)
	assert.InDelta(t, 75, *w[0].WeightPct, 1e-9)
	assert.InDelta(t, 25, *w[1].WeightPct, 1e-9)

	for _, z := range Weights(rows, day("2024-01-02")) {
		assert.Nil(t, z.WeightPct)
	}
}
