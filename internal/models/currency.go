package models

import (
	"strings"

	"github.com/Rhymond/go-money"
)

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	return money.GetCurrency(code) != nil
}
