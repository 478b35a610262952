package engine

import (
	"sort"
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

// Snapshot returns, per ticker, the last row dated on or before asOf, sorted
// by ticker. Tickers with no row by then are left out.
func Snapshot(rows []PositionRow, asOf time.Time) []PositionRow {
	return latestPerTicker(rows, asOf, func(r PositionRow) (string, time.Time) { return r.Ticker, r.Date })
}

// SnapshotValued is Snapshot over base-currency rows.
func SnapshotValued(rows []ValuedRow, asOf time.Time) []ValuedRow {
	return latestPerTicker(rows, asOf, func(r ValuedRow) (string, time.Time) { return r.Ticker, r.Date })
}

// LatestHistory returns the last history row dated on or before asOf.
func LatestHistory(history []HistoryRow, asOf time.Time) (HistoryRow, bool) {
	asOf = models.DateOnly(asOf)
	var best HistoryRow
	found := false
	for _, h := range history {
		if h.Date.After(asOf) {
			continue
		}
		if !found || h.Date.After(best.Date) {
			best, found = h, true
		}
	}
	return best, found
}

func latestPerTicker[R any](rows []R, asOf time.Time, key func(R) (string, time.Time)) []R {
	asOf = models.DateOnly(asOf)
	latest := make(map[string]R)
	dates := make(map[string]time.Time)
	for _, r := range rows {
		ticker, d := key(r)
		if d.After(asOf) {
			continue
		}
		if prev, ok := dates[ticker]; ok && !d.After(prev) {
			continue
		}
		latest[ticker], dates[ticker] = r, d
	}
	tickers := make([]string, 0, len(latest))
	for t := range latest {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	out := make([]R, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, latest[t])
	}
	return out
}
