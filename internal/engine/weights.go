package engine

import "time"

// Weight is a ticker's share of the portfolio's base-currency market value.
type Weight struct {
	Ticker    string   `json:"ticker"`
	Currency  string   `json:"currency"`
	Value     float64  `json:"value"`
	WeightPct *float64 `json:"weight_pct"`
}

// Weights takes the valued snapshot at asOf and divides each ticker's value by
// the total. Every weight is nil when the total is zero.
func Weights(rows []ValuedRow, asOf time.Time) []Weight {
	snap := SnapshotValued(rows, asOf)
	var total float64
	for _, r := range snap {
		total += r.Value
	}
	out := make([]Weight, 0, len(snap))
	for _, r := range snap {
		out = append(out, Weight{
			Ticker:    r.Ticker,
			Currency:  r.Currency,
			Value:     r.Value,
			WeightPct: percentOf(r.Value, total),
		})
	}
	return out
}
