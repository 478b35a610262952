package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single immutable ledger entry.
type Transaction struct {
	ID        string          `json:"id" gorm:"primaryKey;column:id;type:varchar(64)"`
	Date      time.Time       `json:"date" gorm:"column:date;type:date;not null;index"`
	Type      TransactionType `json:"type" gorm:"column:type;type:varchar(16);not null;index"`
	Ticker    string          `json:"ticker" gorm:"column:ticker;type:varchar(32);not null;index"`
	Currency  string          `json:"currency" gorm:"column:currency;type:varchar(8);not null"`
	Shares    decimal.Decimal `json:"shares" gorm:"column:shares;type:decimal(30,10);not null"`
	Value     decimal.Decimal `json:"value" gorm:"column:value;type:decimal(30,10);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// TransactionFilter represents filters for querying transactions
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Types     []TransactionType
	Tickers   []string
	Limit     int
	Offset    int
}

// UnmarshalJSON accepts the date either as YYYY-MM-DD or as RFC 3339.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	if d, err := time.Parse("2006-01-02", aux.Date); err == nil {
		t.Date = d
		return nil
	}
	d, err := time.Parse(time.RFC3339, aux.Date)
	if err != nil {
		return errors.New("date must be YYYY-MM-DD or RFC 3339")
	}
	t.Date = d
	return nil
}

// Normalize upper-cases codes and truncates the date to the UTC day.
func (t *Transaction) Normalize() {
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	t.Type = TransactionType(strings.ToUpper(string(t.Type)))
	t.Date = DateOnly(t.Date)
}

// Validate validates the transaction data
func (t *Transaction) Validate() error {
	if t.Date.IsZero() {
		return errors.New("date is required")
	}
	if !t.Type.IsValid() {
		return errors.New("type must be one of BUY, SELL, DEPOSIT, WITHDRAW")
	}
	if t.Ticker == "" {
		return errors.New("ticker is required")
	}
	if !ValidCurrency(t.Currency) {
		return errors.New("currency must be an ISO 4217 code")
	}
	if t.Shares.IsNegative() {
		return errors.New("shares must be non-negative")
	}
	if t.Value.IsNegative() {
		return errors.New("value must be non-negative")
	}
	if t.Type.IsTrade() && t.Shares.IsZero() {
		return errors.New("shares must be non-zero for trades")
	}
	return nil
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
