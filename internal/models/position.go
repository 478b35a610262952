package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one derived (date, ticker) row, in the ticker's market currency.
// The table is rebuilt wholesale; rows are never patched.
type Position struct {
	Date           time.Time       `json:"date" gorm:"primaryKey;column:date;type:date"`
	Ticker         string          `json:"ticker" gorm:"primaryKey;column:ticker;type:varchar(32)"`
	Currency       string          `json:"currency" gorm:"column:currency;type:varchar(8);not null"`
	Shares         decimal.Decimal `json:"shares" gorm:"column:shares;type:decimal(30,10);not null"`
	Close          decimal.Decimal `json:"close" gorm:"column:close;type:decimal(30,10)"`
	Value          decimal.Decimal `json:"value" gorm:"column:value;type:decimal(30,10)"`
	DailyInvested  decimal.Decimal `json:"daily_invested" gorm:"column:daily_invested;type:decimal(30,10)"`
	DailyWithdrawn decimal.Decimal `json:"daily_withdrawn" gorm:"column:daily_withdrawn;type:decimal(30,10)"`
	GrossInvested  decimal.Decimal `json:"gross_invested" gorm:"column:gross_invested;type:decimal(30,10)"`
	GrossWithdrawn decimal.Decimal `json:"gross_withdrawn" gorm:"column:gross_withdrawn;type:decimal(30,10)"`
	TotalPnL       decimal.Decimal `json:"total_pnl" gorm:"column:total_pnl;type:decimal(30,10)"`
}

func (Position) TableName() string {
	return "positions"
}

// PositionFilter represents filters for querying positions
type PositionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Ticker    string
}
