package engine

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
)

const fxSuffix = "=X"

// PairTicker names the synthetic instrument quoting how many to per one from.
func PairTicker(from, to string) string {
	return strings.ToUpper(from) + strings.ToUpper(to) + fxSuffix
}

// ParsePairTicker splits a six-letter pair ticker such as EURUSD=X.
func ParsePairTicker(ticker string) (from, to string, ok bool) {
	body, found := strings.CutSuffix(strings.ToUpper(ticker), fxSuffix)
	if !found || len(body) != 6 {
		return "", "", false
	}
	return body[:3], body[3:], true
}

// IsPairTicker reports whether ticker follows the FX pair convention.
func IsPairTicker(ticker string) bool {
	_, _, ok := ParsePairTicker(ticker)
	return ok
}

// FXPair is a resolved conversion From->To read from Ticker. Inverse means
// Ticker quotes To->From and its rate must be inverted.
type FXPair struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Ticker  string `json:"ticker"`
	Inverse bool   `json:"inverse"`
}

// NeededPairs resolves which pair tickers convert each currency into target.
// With an empty target every unordered pair of currencies is resolved. The
// direct pair is preferred, then the inverse; when neither exists both names
// are reported as missing so the caller can fetch whichever the source has.
func NeededPairs(currencies []string, target string, existing func(ticker string) bool) (available []FXPair, missing []string) {
	uniq := make(map[string]bool)
	for _, c := range currencies {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			uniq[c] = true
		}
	}
	list := make([]string, 0, len(uniq))
	for c := range uniq {
		list = append(list, c)
	}
	sort.Strings(list)
	target = strings.ToUpper(strings.TrimSpace(target))

	resolve := func(from, to string) {
		direct, inverse := PairTicker(from, to), PairTicker(to, from)
		switch {
		case existing != nil && existing(direct):
			available = append(available, FXPair{From: from, To: to, Ticker: direct})
		case existing != nil && existing(inverse):
			available = append(available, FXPair{From: from, To: to, Ticker: inverse, Inverse: true})
		default:
			missing = append(missing, direct, inverse)
		}
	}

	if target != "" {
		for _, c := range list {
			if c != target {
				resolve(c, target)
			}
		}
		return available, missing
	}
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			resolve(list[i], list[j])
		}
	}
	return available, missing
}

// RateTable holds every FX pair series found in a price table.
type RateTable struct {
	pairs      map[string]*series
	maxLagDays int
}

// NewRateTable indexes the FX rows of prices. Rows with a non-positive close
// are ignored since they cannot be inverted.
func NewRateTable(prices []PriceObservation, maxLagDays int) *RateTable {
	return &RateTable{
		pairs: buildSeries(prices, func(p PriceObservation) bool {
			return IsPairTicker(p.Ticker) && p.Close > 0
		}),
		maxLagDays: maxLagDays,
	}
}

// Has reports whether the table holds any rate under ticker.
func (t *RateTable) Has(ticker string) bool {
	_, ok := t.pairs[strings.ToUpper(ticker)]
	return ok
}

// Tickers lists the pair tickers present, sorted.
func (t *RateTable) Tickers() []string {
	out := make([]string, 0, len(t.pairs))
	for k := range t.pairs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rate returns the from->to rate on or before the given day. The direct pair
// is tried first, then the inverse; if both exist the more recent observation
// wins, the direct pair on a tie.
func (t *RateTable) Rate(from, to string, on time.Time) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	on = models.DateOnly(on)
	dRate, dDate, dOK := t.pairs[PairTicker(from, to)].at(on)
	iRate, iDate, iOK := t.pairs[PairTicker(to, from)].at(on)

	var rate float64
	var observed time.Time
	switch {
	case dOK && (!iOK || !iDate.After(dDate)):
		rate, observed = dRate, dDate
	case iOK:
		rate, observed = 1/iRate, iDate
	default:
		return 0, &apperrors.ErrMissingFXRate{From: from, To: to, Date: on}
	}
	return rate, t.checkLag(from, to, on, observed, rate)
}

// RateVia reads the rate from a pair resolved by NeededPairs.
func (t *RateTable) RateVia(pair FXPair, on time.Time) (float64, error) {
	if pair.From == pair.To {
		return 1, nil
	}
	on = models.DateOnly(on)
	r, observed, ok := t.pairs[pair.Ticker].at(on)
	if !ok {
		return 0, &apperrors.ErrMissingFXRate{From: pair.From, To: pair.To, Date: on}
	}
	if pair.Inverse {
		r = 1 / r
	}
	return r, t.checkLag(pair.From, pair.To, on, observed, r)
}

func (t *RateTable) checkLag(from, to string, on, observed time.Time, rate float64) error {
	if t.maxLagDays <= 0 {
		return nil
	}
	if on.Sub(observed) > time.Duration(t.maxLagDays)*24*time.Hour {
		return &apperrors.ErrStaleFXRate{From: from, To: to, Date: on, Observed: observed, MaxLag: t.maxLagDays}
	}
	return nil
}

// Converter applies an FXPolicy on top of a RateTable and collects the
// warnings produced by permissive substitutions.
type Converter struct {
	rates    *RateTable
	policy   FXPolicy
	warnings map[string]*FXWarning
	order    []string
}

func NewConverter(rates *RateTable, policy FXPolicy) *Converter {
	return &Converter{rates: rates, policy: policy, warnings: make(map[string]*FXWarning)}
}

// Rate converts from->to on day on, trying the direct pair then the inverse.
func (c *Converter) Rate(from, to string, on time.Time) (float64, error) {
	r, err := c.rates.Rate(from, to, on)
	return c.apply(from, to, on, r, err)
}

// RateVia converts through a pair resolved ahead of time.
func (c *Converter) RateVia(pair FXPair, on time.Time) (float64, error) {
	r, err := c.rates.RateVia(pair, on)
	return c.apply(pair.From, pair.To, on, r, err)
}

// Missing records that no pair at all exists for from->to and returns the
// substitute rate, or the strict error.
func (c *Converter) Missing(from, to string, on time.Time) (float64, error) {
	return c.apply(from, to, on, 0, &apperrors.ErrMissingFXRate{From: from, To: to, Date: models.DateOnly(on)})
}

func (c *Converter) apply(from, to string, on time.Time, rate float64, err error) (float64, error) {
	if err == nil {
		return rate, nil
	}
	if c.policy == FXStrict {
		return 0, err
	}
	switch err.(type) {
	case *apperrors.ErrStaleFXRate:
		c.warn(from, to, FXWarningStale, on)
		return rate, nil
	case *apperrors.ErrMissingFXRate:
		c.warn(from, to, FXWarningMissing, on)
		return 1, nil
	}
	return 0, err
}

func (c *Converter) warn(from, to string, kind FXWarningKind, on time.Time) {
	on = models.DateOnly(on)
	key := from + "/" + to + "/" + string(kind)
	w, ok := c.warnings[key]
	if !ok {
		w = &FXWarning{From: from, To: to, Kind: kind, First: on, Last: on}
		c.warnings[key] = w
		c.order = append(c.order, key)
	}
	if on.Before(w.First) {
		w.First = on
	}
	if on.After(w.Last) {
		w.Last = on
	}
	w.Count++
}

// Warnings returns the collected warnings in first-seen order.
func (c *Converter) Warnings() []FXWarning {
	out := make([]FXWarning, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.warnings[k])
	}
	return out
}
