package engine

import (
	"sort"
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

// PortfolioTicker labels the stats record computed from portfolio history.
const PortfolioTicker = "PORTFOLIO"

// Window is a lookback measured back from the as-of date.
type Window struct {
	Label  string
	Years  int
	Months int
	Days   int
}

// Start is the day the window's baseline must be at or before. Year and
// month offsets clamp to the last day of the target month, so the 1M window
// from 2024-03-31 starts on 2024-02-29.
func (w Window) Start(asOf time.Time) time.Time {
	d := models.DateOnly(asOf)
	if w.Years != 0 || w.Months != 0 {
		first := time.Date(d.Year()-w.Years, d.Month()-time.Month(w.Months), 1, 0, 0, 0, 0, time.UTC)
		lastDay := first.AddDate(0, 1, -1).Day()
		dom := d.Day()
		if dom > lastDay {
			dom = lastDay
		}
		d = time.Date(first.Year(), first.Month(), dom, 0, 0, 0, 0, time.UTC)
	}
	return d.AddDate(0, 0, -w.Days)
}

// DefaultWindows are 1W, 1M, 3M, 6M and 1Y.
var DefaultWindows = []Window{
	{Label: "1W", Days: 7},
	{Label: "1M", Months: 1},
	{Label: "3M", Months: 3},
	{Label: "6M", Months: 6},
	{Label: "1Y", Years: 1},
}

// StatPoint is one day of a value series with that day's cash flows.
type StatPoint struct {
	Date    time.Time
	Value   float64
	CashIn  float64
	CashOut float64
}

// PeriodStats describes one window. Percentages are in percent.
type PeriodStats struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TWRPct    *float64  `json:"twr_pct"`
	PnLAbs    float64   `json:"pnl_abs"`
	CashIn    float64   `json:"cash_in"`
	CashOut   float64   `json:"cash_out"`
	MVStart   float64   `json:"mv_start"`
	MVEnd     float64   `json:"mv_end"`
}

// StatsRecord summarizes one ticker, or the whole portfolio, at AsOf. A
// window without a baseline maps to nil, which encodes as JSON null.
type StatsRecord struct {
	Ticker       string                  `json:"ticker"`
	AsOf         time.Time               `json:"as_of"`
	Currency     string                  `json:"currency"`
	MarketValue  float64                 `json:"market_value"`
	TotalPnL     float64                 `json:"total_pnl"`
	TotalPnLPct  *float64                `json:"total_pnl_pct"`
	CumInvested  float64                 `json:"cum_invested"`
	CumWithdrawn float64                 `json:"cum_withdrawn"`
	Periods      map[string]*PeriodStats `json:"periods"`
}

// TWR compounds daily returns r = (V_t - (V_{t-1} + CF_t)) / (V_{t-1} + CF_t)
// with CF_t the net inflow of day t. Days with a non-positive denominator
// count as flat. Fewer than two points yield nil. The result is a fraction.
func TWR(points []StatPoint) *float64 {
	if len(points) < 2 {
		return nil
	}
	growth := 1.0
	for i := 1; i < len(points); i++ {
		denom := points[i-1].Value + points[i].CashIn - points[i].CashOut
		if denom > 0 {
			growth *= 1 + (points[i].Value-denom)/denom
		}
	}
	r := growth - 1
	return &r
}

// Period computes the stats of one window over date-sorted points. It returns
// nil when no point exists at or before the window start, or when the window
// holds fewer than two points.
func Period(points []StatPoint, asOf time.Time, w Window) *PeriodStats {
	asOf = models.DateOnly(asOf)
	start := w.Start(asOf)
	base, end := -1, -1
	for i, p := range points {
		if !p.Date.After(start) {
			base = i
		}
		if !p.Date.After(asOf) {
			end = i
		}
	}
	if base < 0 || end-base < 1 {
		return nil
	}
	segment := points[base : end+1]
	ps := &PeriodStats{
		StartDate: segment[0].Date,
		EndDate:   segment[len(segment)-1].Date,
		MVStart:   segment[0].Value,
		MVEnd:     segment[len(segment)-1].Value,
	}
	for _, p := range segment[1:] {
		ps.CashIn += p.CashIn
		ps.CashOut += p.CashOut
	}
	ps.PnLAbs = ps.MVEnd - ps.MVStart - (ps.CashIn - ps.CashOut)
	if twr := TWR(segment); twr != nil {
		pct := *twr * 100
		ps.TWRPct = &pct
	}
	return ps
}

// ComputeStats builds one record per ticker from position rows, in each
// ticker's market currency. Tickers without a row on or before asOf are
// skipped.
func ComputeStats(rows []PositionRow, asOf time.Time, windows []Window) []StatsRecord {
	if windows == nil {
		windows = DefaultWindows
	}
	asOf = models.DateOnly(asOf)
	byTicker := make(map[string][]PositionRow)
	for _, r := range rows {
		byTicker[r.Ticker] = append(byTicker[r.Ticker], r)
	}
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make([]StatsRecord, 0, len(tickers))
	for _, ticker := range tickers {
		series := byTicker[ticker]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		points := make([]StatPoint, 0, len(series))
		var latest *PositionRow
		for i := range series {
			r := series[i]
			points = append(points, StatPoint{Date: r.Date, Value: r.Value, CashIn: r.DailyInvested, CashOut: r.DailyWithdrawn})
			if !r.Date.After(asOf) {
				latest = &series[i]
			}
		}
		if latest == nil {
			continue
		}
		rec := StatsRecord{
			Ticker:       ticker,
			AsOf:         asOf,
			Currency:     latest.Currency,
			MarketValue:  latest.Value,
			TotalPnL:     latest.TotalPnL,
			TotalPnLPct:  percentOf(latest.TotalPnL, latest.GrossInvested),
			CumInvested:  latest.GrossInvested,
			CumWithdrawn: latest.GrossWithdrawn,
			Periods:      periods(points, asOf, windows),
		}
		out = append(out, rec)
	}
	return out
}

// PortfolioStats builds the portfolio-level record from history rows in the
// base currency. It returns nil when no history row exists by asOf.
func PortfolioStats(history []HistoryRow, baseCurrency string, asOf time.Time, windows []Window) *StatsRecord {
	if windows == nil {
		windows = DefaultWindows
	}
	asOf = models.DateOnly(asOf)
	sorted := make([]HistoryRow, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	points := make([]StatPoint, 0, len(sorted))
	var cumIn, cumOut float64
	var latest *HistoryRow
	var latestIn, latestOut float64
	for i := range sorted {
		h := sorted[i]
		points = append(points, StatPoint{Date: h.Date, Value: h.TotalValue, CashIn: h.GrossInvested, CashOut: h.GrossWithdrawn})
		cumIn += h.GrossInvested
		cumOut += h.GrossWithdrawn
		if !h.Date.After(asOf) {
			latest = &sorted[i]
			latestIn, latestOut = cumIn, cumOut
		}
	}
	if latest == nil {
		return nil
	}
	return &StatsRecord{
		Ticker:       PortfolioTicker,
		AsOf:         asOf,
		Currency:     baseCurrency,
		MarketValue:  latest.TotalValue,
		TotalPnL:     latest.TotalPnL,
		TotalPnLPct:  percentOf(latest.TotalPnL, latestIn),
		CumInvested:  latestIn,
		CumWithdrawn: latestOut,
		Periods:      periods(points, asOf, windows),
	}
}

func periods(points []StatPoint, asOf time.Time, windows []Window) map[string]*PeriodStats {
	out := make(map[string]*PeriodStats, len(windows))
	for _, w := range windows {
		out[w.Label] = Period(points, asOf, w)
	}
	return out
}

// percentOf returns part/whole in percent, nil when whole is zero.
func percentOf(part, whole float64) *float64 {
	if whole == 0 {
		return nil
	}
	p := part / whole * 100
	return &p
}
