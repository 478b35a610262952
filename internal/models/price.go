package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Price is a daily OHLCV observation. FX rates are stored the same way under
// pair tickers like EURUSD=X, with the rate in Close.
type Price struct {
	Ticker string          `json:"ticker" gorm:"primaryKey;column:ticker;type:varchar(32)"`
	Date   time.Time       `json:"date" gorm:"primaryKey;column:date;type:date"`
	Open   decimal.Decimal `json:"open" gorm:"column:open;type:decimal(30,10);not null"`
	High   decimal.Decimal `json:"high" gorm:"column:high;type:decimal(30,10);not null"`
	Low    decimal.Decimal `json:"low" gorm:"column:low;type:decimal(30,10);not null"`
	Close  decimal.Decimal `json:"close" gorm:"column:close;type:decimal(30,10);not null"`
	Volume *int64          `json:"volume" gorm:"column:volume"`
}

func (Price) TableName() string {
	return "prices"
}

func (p *Price) Validate() error {
	if p.Ticker == "" {
		return errors.New("ticker is required")
	}
	if p.Date.IsZero() {
		return errors.New("date is required")
	}
	if p.Close.IsNegative() {
		return errors.New("close must be non-negative")
	}
	return nil
}

// PricePoint is a close joined with the instrument's native currency.
type PricePoint struct {
	Ticker    string          `json:"ticker"`
	Date      time.Time       `json:"date"`
	Close     decimal.Decimal `json:"close"`
	Currency  string          `json:"currency"`
	AssetType string          `json:"asset_type"`
}

// PriceFilter represents filters for querying prices
type PriceFilter struct {
	Tickers   []string
	StartDate *time.Time
	EndDate   *time.Time
}
