package engine

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
)

// Valuation is the output of Valuate.
type Valuation struct {
	BaseCurrency string
	// Tickers holds one row per ticker per day, converted to the base currency.
	Tickers  []ValuedRow
	History  []HistoryRow
	Warnings []FXWarning
}

// Valuate converts positions into the base currency and aggregates them into
// one history row per calendar day between the first transaction date and the
// horizon. Each ticker is expanded independently: state carries forward and
// daily flows are zero on days without activity. The close of a day is the
// observed close on or before it, falling back to the position's own close.
//
// ledger supplies the cash movements: DEPOSIT and WITHDRAW entries are
// converted on their own date and counted as inflows and outflows. Trades in
// ledger are ignored since positions already carry their flows, but their
// dates still extend the calendar.
func Valuate(positions []PositionRow, ledger []Transaction, prices []PriceObservation, opts Options) (*Valuation, error) {
	base := strings.ToUpper(strings.TrimSpace(opts.BaseCurrency))
	if base == "" {
		return nil, &apperrors.ErrValidation{Field: "base_currency", Message: "base currency is required"}
	}
	out := &Valuation{BaseCurrency: base, Tickers: []ValuedRow{}, History: []HistoryRow{}, Warnings: []FXWarning{}}
	if len(positions) == 0 && len(ledger) == 0 {
		return out, nil
	}

	byTicker := make(map[string][]Observation[PositionRow])
	currencyOf := make(map[string]string)
	var first, last time.Time
	for _, p := range positions {
		p.Date = models.DateOnly(p.Date)
		byTicker[p.Ticker] = append(byTicker[p.Ticker], Observation[PositionRow]{Date: p.Date, Value: p})
		if p.Currency != "" {
			currencyOf[p.Ticker] = strings.ToUpper(p.Currency)
		}
		if first.IsZero() || p.Date.Before(first) {
			first = p.Date
		}
		if p.Date.After(last) {
			last = p.Date
		}
	}
	var cash []Transaction
	cashCurrencies := make(map[string]struct{})
	for _, tx := range ledger {
		tx.Date = models.DateOnly(tx.Date)
		if first.IsZero() || tx.Date.Before(first) {
			first = tx.Date
		}
		if tx.Date.After(last) {
			last = tx.Date
		}
		if tx.Type.IsTrade() {
			continue
		}
		tx.Currency = strings.ToUpper(tx.Currency)
		if tx.Currency != "" {
			cashCurrencies[tx.Currency] = struct{}{}
		}
		cash = append(cash, tx)
	}
	end := horizon(opts, prices, last)
	if end.Before(first) {
		return out, nil
	}

	rates := NewRateTable(prices, opts.MaxLagDays)
	conv := NewConverter(rates, opts.Policy)
	currencies := make([]string, 0, len(currencyOf)+len(cashCurrencies))
	for _, c := range currencyOf {
		currencies = append(currencies, c)
	}
	for c := range cashCurrencies {
		currencies = append(currencies, c)
	}
	available, _ := NeededPairs(currencies, base, rates.Has)
	pairs := make(map[string]FXPair, len(available))
	for _, p := range available {
		pairs[p.From] = p
	}
	rateOn := func(currency string, d time.Time) (float64, error) {
		if currency == "" || currency == base {
			return 1, nil
		}
		if pair, ok := pairs[currency]; ok {
			return conv.RateVia(pair, d)
		}
		return conv.Missing(currency, base, d)
	}

	closes := buildSeries(prices, func(p PriceObservation) bool { return !IsPairTicker(p.Ticker) })
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	type daily struct{ value, invested, withdrawn float64 }
	totals := make(map[time.Time]*daily)
	for _, ticker := range tickers {
		currency := currencyOf[ticker]
		expanded := Expand(byTicker[ticker], end, func(prev PositionRow) PositionRow {
			prev.DailyInvested, prev.DailyWithdrawn = 0, 0
			return prev
		})
		for _, o := range expanded {
			row := o.Value
			price, _, ok := closes[ticker].at(o.Date)
			if !ok {
				price = row.Close
			}
			rate, err := rateOn(currency, o.Date)
			if err != nil {
				return nil, err
			}
			v := ValuedRow{
				Date:           o.Date,
				Ticker:         ticker,
				Currency:       currency,
				Rate:           rate,
				Shares:         row.Shares,
				Close:          price,
				Value:          price * row.Shares * rate,
				DailyInvested:  row.DailyInvested * rate,
				DailyWithdrawn: row.DailyWithdrawn * rate,
			}
			out.Tickers = append(out.Tickers, v)
			t, ok := totals[o.Date]
			if !ok {
				t = &daily{}
				totals[o.Date] = t
			}
			t.value += v.Value
			t.invested += v.DailyInvested
			t.withdrawn += v.DailyWithdrawn
		}
	}

	sort.SliceStable(cash, func(i, j int) bool { return cash[i].Date.Before(cash[j].Date) })
	for _, tx := range cash {
		if tx.Date.After(end) {
			continue
		}
		rate, err := rateOn(tx.Currency, tx.Date)
		if err != nil {
			return nil, err
		}
		t, ok := totals[tx.Date]
		if !ok {
			t = &daily{}
			totals[tx.Date] = t
		}
		switch {
		case tx.Type.IsInflow():
			t.invested += tx.Value * rate
		case tx.Type.IsOutflow():
			t.withdrawn += tx.Value * rate
		}
	}

	var cumIn, cumOut float64
	for _, d := range DateRange(first, end) {
		t := totals[d]
		if t == nil {
			t = &daily{}
		}
		cumIn += t.invested
		cumOut += t.withdrawn
		invested := cumIn - cumOut
		out.History = append(out.History, HistoryRow{
			Date:           d,
			TotalValue:     t.value,
			InvestedValue:  invested,
			GrossInvested:  t.invested,
			GrossWithdrawn: t.withdrawn,
			TotalPnL:       t.value - invested,
		})
	}

	sort.SliceStable(out.Tickers, func(i, j int) bool {
		a, b := out.Tickers[i], out.Tickers[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Ticker < b.Ticker
	})
	out.Warnings = conv.Warnings()
	return out, nil
}
