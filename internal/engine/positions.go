package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

// PositionResult is the output of BuildPositions.
type PositionResult struct {
	Rows     []PositionRow
	Warnings []FXWarning
}

// dayActivity is the aggregate of one ticker's trades on one day. Implied is
// the transaction-implied price, carried forward until a close is observed.
type dayActivity struct {
	Delta     float64
	Invested  float64
	Withdrawn float64
	Implied   float64
}

// BuildPositions turns the ledger into one row per (day, ticker) in the
// ticker's market currency. instruments maps ticker to native currency and is
// consulted when the price table carries no currency for a ticker. Cash
// movements (DEPOSIT, WITHDRAW) do not produce position rows.
func BuildPositions(txs []Transaction, prices []PriceObservation, instruments map[string]string, opts Options) (*PositionResult, error) {
	result := &PositionResult{Rows: []PositionRow{}, Warnings: []FXWarning{}}
	if len(txs) == 0 {
		return result, nil
	}

	conv := NewConverter(NewRateTable(prices, opts.MaxLagDays), opts.Policy)
	closes := buildSeries(prices, func(p PriceObservation) bool { return !IsPairTicker(p.Ticker) })
	priceCurrency := make(map[string]string)
	for _, p := range prices {
		if p.Currency != "" && !IsPairTicker(p.Ticker) {
			priceCurrency[p.Ticker] = strings.ToUpper(p.Currency)
		}
	}

	sorted := make([]Transaction, 0, len(txs))
	var lastTx time.Time
	for _, tx := range txs {
		tx.Date = models.DateOnly(tx.Date)
		if tx.Date.After(lastTx) {
			lastTx = tx.Date
		}
		if tx.Type.IsTrade() {
			sorted = append(sorted, tx)
		}
	}
	if len(sorted) == 0 {
		return result, nil
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	end := horizon(opts, prices, lastTx)

	marketCurrency := func(tx Transaction) string {
		if c := priceCurrency[tx.Ticker]; c != "" {
			return c
		}
		if c := strings.ToUpper(instruments[tx.Ticker]); c != "" {
			return c
		}
		return strings.ToUpper(tx.Currency)
	}

	type tickerLedger struct {
		currency string
		days     map[time.Time]*dayActivity
		order    []time.Time
	}
	ledgers := make(map[string]*tickerLedger)
	var tickers []string
	for _, tx := range sorted {
		l, ok := ledgers[tx.Ticker]
		if !ok {
			l = &tickerLedger{currency: marketCurrency(tx), days: make(map[time.Time]*dayActivity)}
			ledgers[tx.Ticker] = l
			tickers = append(tickers, tx.Ticker)
		}
		from := strings.ToUpper(tx.Currency)
		if from == "" {
			from = l.currency
		}
		rate, err := conv.Rate(from, l.currency, tx.Date)
		if err != nil {
			return nil, err
		}
		value := tx.Value * rate

		day, ok := l.days[tx.Date]
		if !ok {
			day = &dayActivity{}
			l.days[tx.Date] = day
			l.order = append(l.order, tx.Date)
		}
		day.Delta += tx.Type.ShareSign() * tx.Shares
		if tx.Type == models.TransactionBuy {
			day.Invested += value
		} else {
			day.Withdrawn += value
		}
		if tx.Shares > 0 {
			day.Implied = value / tx.Shares
		}
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		l := ledgers[ticker]
		obs := make([]Observation[dayActivity], 0, len(l.order))
		var implied float64
		for _, d := range l.order {
			a := *l.days[d]
			if a.Implied == 0 {
				a.Implied = implied
			}
			implied = a.Implied
			obs = append(obs, Observation[dayActivity]{Date: d, Value: a})
		}
		expanded := Expand(obs, end, func(prev dayActivity) dayActivity {
			return dayActivity{Implied: prev.Implied}
		})

		var shares, invested, withdrawn float64
		for _, o := range expanded {
			shares += o.Value.Delta
			invested += o.Value.Invested
			withdrawn += o.Value.Withdrawn
			price, _, ok := closes[ticker].at(o.Date)
			if !ok {
				price = o.Value.Implied
			}
			value := shares * price
			result.Rows = append(result.Rows, PositionRow{
				Date:           o.Date,
				Ticker:         ticker,
				Currency:       l.currency,
				Shares:         shares,
				Close:          price,
				Value:          value,
				DailyInvested:  o.Value.Invested,
				DailyWithdrawn: o.Value.Withdrawn,
				GrossInvested:  invested,
				GrossWithdrawn: withdrawn,
				TotalPnL:       value + withdrawn - invested,
			})
		}
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		a, b := result.Rows[i], result.Rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Ticker < b.Ticker
	})
	result.Warnings = conv.Warnings()
	return result, nil
}
