package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

// Transaction is a ledger entry with positive magnitudes.
type Transaction struct {
	Date     time.Time
	Type     models.TransactionType
	Ticker   string
	Currency string
	Shares   float64
	Value    float64
}

// PriceObservation is a daily close. Currency is the instrument's native
// currency as joined from the ticker reference data; it is ignored for FX rows.
type PriceObservation struct {
	Ticker   string
	Date     time.Time
	Close    float64
	Currency string
}

// PositionRow is one (date, ticker) row in the ticker's market currency.
// DailyInvested/DailyWithdrawn are that day's flows, GrossInvested and
// GrossWithdrawn their running totals.
type PositionRow struct {
	Date           time.Time `json:"date"`
	Ticker         string    `json:"ticker"`
	Currency       string    `json:"currency"`
	Shares         float64   `json:"shares"`
	Close          float64   `json:"close"`
	Value          float64   `json:"value"`
	DailyInvested  float64   `json:"daily_invested"`
	DailyWithdrawn float64   `json:"daily_withdrawn"`
	GrossInvested  float64   `json:"gross_invested"`
	GrossWithdrawn float64   `json:"gross_withdrawn"`
	TotalPnL       float64   `json:"total_pnl"`
}

// ValuedRow is a PositionRow converted into the base currency.
type ValuedRow struct {
	Date           time.Time `json:"date"`
	Ticker         string    `json:"ticker"`
	Currency       string    `json:"currency"`
	Rate           float64   `json:"rate"`
	Shares         float64   `json:"shares"`
	Close          float64   `json:"close"`
	Value          float64   `json:"value"`
	DailyInvested  float64   `json:"daily_invested"`
	DailyWithdrawn float64   `json:"daily_withdrawn"`
}

// HistoryRow is one calendar day of the whole portfolio in the base currency.
type HistoryRow struct {
	Date           time.Time `json:"date"`
	TotalValue     float64   `json:"total_value"`
	InvestedValue  float64   `json:"invested_value"`
	GrossInvested  float64   `json:"gross_invested"`
	GrossWithdrawn float64   `json:"gross_withdrawn"`
	TotalPnL       float64   `json:"total_pnl"`
}

// FXPolicy decides what happens when a conversion has no usable rate.
type FXPolicy int

const (
	// FXPermissive substitutes 1.0 for missing rates, uses stale rates as-is
	// and reports every substitution as an FXWarning.
	FXPermissive FXPolicy = iota
	// FXStrict aborts the computation with a typed error.
	FXStrict
)

func (p FXPolicy) String() string {
	if p == FXStrict {
		return "strict"
	}
	return "permissive"
}

// ParseFXPolicy parses "strict" or "permissive".
func ParseFXPolicy(s string) (FXPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return FXStrict, nil
	case "permissive", "":
		return FXPermissive, nil
	}
	return FXPermissive, fmt.Errorf("unknown FX policy %q", s)
}

// Options configures a computation.
type Options struct {
	// BaseCurrency is the reporting currency. Required by Valuate.
	BaseCurrency string
	Policy       FXPolicy
	// MaxLagDays rejects rates older than this many days; 0 disables it.
	MaxLagDays int
	// Horizon is the last day produced. Zero means the latest price date,
	// or the latest transaction/position date when that is newer.
	Horizon time.Time
}

// FXWarningKind classifies a degraded conversion.
type FXWarningKind string

const (
	FXWarningMissing FXWarningKind = "missing"
	FXWarningStale   FXWarningKind = "stale"
)

// FXWarning summarizes every degraded conversion of one currency pair.
type FXWarning struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Kind  FXWarningKind `json:"kind"`
	First time.Time     `json:"first"`
	Last  time.Time     `json:"last"`
	Count int           `json:"count"`
}
