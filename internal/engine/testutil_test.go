package engine

import (
	"time"

	"github.com/tropicaldog17/folio/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func buy(date, ticker, currency string, shares, value float64) Transaction {
	return Transaction{Date: day(date), Type: models.TransactionBuy, Ticker: ticker, Currency: currency, Shares: shares, Value: value}
}

func sell(date, ticker, currency string, shares, value float64) Transaction {
	return Transaction{Date: day(date), Type: models.TransactionSell, Ticker: ticker, Currency: currency, Shares: shares, Value: value}
}

func px(ticker, date string, close float64, currency string) PriceObservation {
	return PriceObservation{Ticker: ticker, Date: day(date), Close: close, Currency: currency}
}

func rowOn(rows []PositionRow, ticker, date string) (PositionRow, bool) {
	for _, r := range rows {
		if r.Ticker == ticker && r.Date.Equal(day(date)) {
			return r, true
		}
	}
	return PositionRow{}, false
}
