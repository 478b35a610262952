package engine

import (
	"sort"
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

// Observation is a value known on a given day.
type Observation[T any] struct {
	Date  time.Time
	Value T
}

// DateRange returns every calendar day from start through end inclusive.
func DateRange(start, end time.Time) []time.Time {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Expand turns sparse observations into one entry per day, from the first
// observation through end. Days without an observation get carry applied to
// the previous day's value: return prev unchanged to forward-fill state, or a
// zeroed copy for flow values. Days before the first observation are not
// produced and observations after end are dropped. When two observations share
// a day the later one in obs wins.
func Expand[T any](obs []Observation[T], end time.Time, carry func(prev T) T) []Observation[T] {
	if len(obs) == 0 {
		return nil
	}
	sorted := make([]Observation[T], len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	byDay := make(map[time.Time]T, len(sorted))
	for _, o := range sorted {
		byDay[models.DateOnly(o.Date)] = o.Value
	}

	days := DateRange(sorted[0].Date, end)
	out := make([]Observation[T], 0, len(days))
	var prev T
	for i, d := range days {
		v, ok := byDay[d]
		if !ok && i > 0 {
			v = carry(prev)
		}
		out = append(out, Observation[T]{Date: d, Value: v})
		prev = v
	}
	return out
}

// series is a date-sorted numeric series answering as-of-or-before lookups,
// which is a forward-fill of the series over any calendar.
type series struct {
	dates  []time.Time
	values []float64
}

// add appends a point; callers must add in ascending date order. A second
// point on the same day is ignored, so the first observation of a day wins.
func (s *series) add(d time.Time, v float64) {
	d = models.DateOnly(d)
	if n := len(s.dates); n > 0 && s.dates[n-1].Equal(d) {
		return
	}
	s.dates = append(s.dates, d)
	s.values = append(s.values, v)
}

// at returns the last value observed on or before d.
func (s *series) at(d time.Time) (float64, time.Time, bool) {
	if s == nil {
		return 0, time.Time{}, false
	}
	d = models.DateOnly(d)
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	if i == 0 {
		return 0, time.Time{}, false
	}
	return s.values[i-1], s.dates[i-1], true
}

func (s *series) last() (time.Time, bool) {
	if s == nil || len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[len(s.dates)-1], true
}

// buildSeries groups observations by ticker into ascending series. Rows are
// sorted stably by date first so the earliest-listed row of a day is kept.
func buildSeries(prices []PriceObservation, keep func(PriceObservation) bool) map[string]*series {
	sorted := make([]PriceObservation, 0, len(prices))
	for _, p := range prices {
		if keep == nil || keep(p) {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.DateOnly(sorted[i].Date).Before(models.DateOnly(sorted[j].Date))
	})
	out := make(map[string]*series)
	for _, p := range sorted {
		s, ok := out[p.Ticker]
		if !ok {
			s = &series{}
			out[p.Ticker] = s
		}
		s.add(p.Date, p.Close)
	}
	return out
}

// horizon picks the last day to produce: the explicit one if set, otherwise
// the latest of the price dates and the extra dates.
func horizon(opts Options, prices []PriceObservation, extra ...time.Time) time.Time {
	if !opts.Horizon.IsZero() {
		return models.DateOnly(opts.Horizon)
	}
	var end time.Time
	for _, p := range prices {
		if p.Date.After(end) {
			end = p.Date
		}
	}
	for _, d := range extra {
		if d.After(end) {
			end = d
		}
	}
	return models.DateOnly(end)
}
