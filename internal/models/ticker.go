package models

import "time"

// AssetTypeCurrency marks synthetic FX pair instruments such as EURUSD=X.
const AssetTypeCurrency = "CURRENCY"

// TickerInfo is the reference data for an instrument. Its currency anchors
// every conversion involving the ticker.
type TickerInfo struct {
	Ticker    string    `json:"ticker" gorm:"primaryKey;column:ticker;type:varchar(32)"`
	Currency  string    `json:"currency" gorm:"column:currency;type:varchar(8);not null"`
	LongName  *string   `json:"long_name" gorm:"column:long_name;type:varchar(255)"`
	Exchange  *string   `json:"exchange" gorm:"column:exchange;type:varchar(64)"`
	AssetType *string   `json:"asset_type" gorm:"column:asset_type;type:varchar(32)"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (TickerInfo) TableName() string {
	return "tickers"
}
