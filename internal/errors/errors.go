package errors

import (
	"fmt"
	"time"
)

type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// ErrMissingFXRate is returned when neither the direct nor the inverse pair
// has a usable rate for the conversion on Date.
type ErrMissingFXRate struct {
	From string
	To   string
	Date time.Time
}

func (e *ErrMissingFXRate) Error() string {
	return fmt.Sprintf("no FX rate %s->%s (neither %s%s=X nor %s%s=X) on or before %s",
		e.From, e.To, e.From, e.To, e.To, e.From, e.Date.Format("2006-01-02"))
}

// ErrStaleFXRate is returned when the newest rate available on Date is older
// than the configured maximum lag.
type ErrStaleFXRate struct {
	From     string
	To       string
	Date     time.Time
	Observed time.Time
	MaxLag   int
}

func (e *ErrStaleFXRate) Error() string {
	return fmt.Sprintf("FX rate %s->%s for %s is stale: last observed %s (max lag %d days)",
		e.From, e.To, e.Date.Format("2006-01-02"), e.Observed.Format("2006-01-02"), e.MaxLag)
}
