package errors

import (
	"strings"
	"testing"
	"time"
)

func TestErrValidationError(t *testing.T) {
	err := &ErrValidation{Field: "amount", Message: "must be positive"}
	if got, want := err.Error(), "amount: must be positive"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrMissingFXRateNamesBothPairs(t *testing.T) {
	err := &ErrMissingFXRate{From: "EUR", To: "JPY", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	msg := err.Error()
	for _, want := range []string{"EURJPY=X", "JPYEUR=X", "2024-03-01"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestErrStaleFXRateError(t *testing.T) {
	err := &ErrStaleFXRate{
		From:     "GBP",
		To:       "USD",
		Date:     time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Observed: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		MaxLag:   30,
	}
	if got, want := err.Error(), "FX rate GBP->USD for 2024-03-31 is stale: last observed 2024-01-02 (max lag 30 days)"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}
