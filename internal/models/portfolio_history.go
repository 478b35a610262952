package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioHistory is one calendar day of the whole portfolio in the base
// currency. GrossInvested/GrossWithdrawn are that day's flows.
type PortfolioHistory struct {
	Date           time.Time       `json:"date" gorm:"primaryKey;column:date;type:date"`
	BaseCurrency   string          `json:"base_currency" gorm:"column:base_currency;type:varchar(8);not null"`
	TotalValue     decimal.Decimal `json:"total_value" gorm:"column:total_value;type:decimal(30,10)"`
	InvestedValue  decimal.Decimal `json:"invested_value" gorm:"column:invested_value;type:decimal(30,10)"`
	GrossInvested  decimal.Decimal `json:"gross_invested" gorm:"column:gross_invested;type:decimal(30,10)"`
	GrossWithdrawn decimal.Decimal `json:"gross_withdrawn" gorm:"column:gross_withdrawn;type:decimal(30,10)"`
	TotalPnL       decimal.Decimal `json:"total_pnl" gorm:"column:total_pnl;type:decimal(30,10)"`
}

func (PortfolioHistory) TableName() string {
	return "portfolio_history"
}
