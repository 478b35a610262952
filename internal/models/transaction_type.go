package models

import "strings"

// TransactionType is the kind of ledger entry. Shares and value are always
// stored as magnitudes; the type decides the sign.
type TransactionType string

const (
	TransactionBuy      TransactionType = "BUY"
	TransactionSell     TransactionType = "SELL"
	TransactionDeposit  TransactionType = "DEPOSIT"
	TransactionWithdraw TransactionType = "WITHDRAW"
)

// ParseTransactionType accepts any casing and surrounding whitespace.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionDeposit, TransactionWithdraw:
		return true
	}
	return false
}

// IsTrade reports whether the type moves shares of an instrument.
func (t TransactionType) IsTrade() bool {
	return t == TransactionBuy || t == TransactionSell
}

// IsInflow reports whether cash goes into the portfolio (BUY, DEPOSIT).
func (t TransactionType) IsInflow() bool {
	return t == TransactionBuy || t == TransactionDeposit
}

// IsOutflow reports whether cash leaves the portfolio (SELL, WITHDRAW).
func (t TransactionType) IsOutflow() bool {
	return t == TransactionSell || t == TransactionWithdraw
}

// ShareSign is +1 for BUY, -1 for SELL and 0 for cash-only entries.
func (t TransactionType) ShareSign() float64 {
	switch t {
	case TransactionBuy:
		return 1
	case TransactionSell:
		return -1
	}
	return 0
}
