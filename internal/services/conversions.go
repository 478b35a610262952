package services

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
)

// toDecimal converts engine output for storage. NaN and infinities, which
// decimal cannot represent, are stored as zero.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toEngineTransactions(txs []*models.Transaction) []engine.Transaction {
	out := make([]engine.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, engine.Transaction{
			Date:     models.DateOnly(tx.Date),
			Type:     tx.Type,
			Ticker:   tx.Ticker,
			Currency: tx.Currency,
			Shares:   toFloat(tx.Shares),
			Value:    toFloat(tx.Value),
		})
	}
	return out
}

func toEnginePrices(points []*models.PricePoint) []engine.PriceObservation {
	out := make([]engine.PriceObservation, 0, len(points))
	for _, p := range points {
		out = append(out, engine.PriceObservation{
			Ticker:   p.Ticker,
			Date:     models.DateOnly(p.Date),
			Close:    toFloat(p.Close),
			Currency: strings.ToUpper(p.Currency),
		})
	}
	return out
}

// pricesToObservations converts freshly fetched rows, which carry no currency.
func pricesToObservations(prices []*models.Price) []engine.PriceObservation {
	out := make([]engine.PriceObservation, 0, len(prices))
	for _, p := range prices {
		out = append(out, engine.PriceObservation{
			Ticker: p.Ticker,
			Date:   models.DateOnly(p.Date),
			Close:  toFloat(p.Close),
		})
	}
	return out
}

func positionModels(rows []engine.PositionRow) []*models.Position {
	out := make([]*models.Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.Position{
			Date:           r.Date,
			Ticker:         r.Ticker,
			Currency:       r.Currency,
			Shares:         toDecimal(r.Shares),
			Close:          toDecimal(r.Close),
			Value:          toDecimal(r.Value),
			DailyInvested:  toDecimal(r.DailyInvested),
			DailyWithdrawn: toDecimal(r.DailyWithdrawn),
			GrossInvested:  toDecimal(r.GrossInvested),
			GrossWithdrawn: toDecimal(r.GrossWithdrawn),
			TotalPnL:       toDecimal(r.TotalPnL),
		})
	}
	return out
}

func positionRows(rows []*models.Position) []engine.PositionRow {
	out := make([]engine.PositionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, engine.PositionRow{
			Date:           models.DateOnly(r.Date),
			Ticker:         r.Ticker,
			Currency:       r.Currency,
			Shares:         toFloat(r.Shares),
			Close:          toFloat(r.Close),
			Value:          toFloat(r.Value),
			DailyInvested:  toFloat(r.DailyInvested),
			DailyWithdrawn: toFloat(r.DailyWithdrawn),
			GrossInvested:  toFloat(r.GrossInvested),
			GrossWithdrawn: toFloat(r.GrossWithdrawn),
			TotalPnL:       toFloat(r.TotalPnL),
		})
	}
	return out
}

func historyModels(rows []engine.HistoryRow, base string) []*models.PortfolioHistory {
	out := make([]*models.PortfolioHistory, 0, len(rows))
	for _, h := range rows {
		out = append(out, &models.PortfolioHistory{
			Date:           h.Date,
			BaseCurrency:   base,
			TotalValue:     toDecimal(h.TotalValue),
			InvestedValue:  toDecimal(h.InvestedValue),
			GrossInvested:  toDecimal(h.GrossInvested),
			GrossWithdrawn: toDecimal(h.GrossWithdrawn),
			TotalPnL:       toDecimal(h.TotalPnL),
		})
	}
	return out
}

func historyRows(rows []*models.PortfolioHistory) []engine.HistoryRow {
	out := make([]engine.HistoryRow, 0, len(rows))
	for _, h := range rows {
		out = append(out, engine.HistoryRow{
			Date:           models.DateOnly(h.Date),
			TotalValue:     toFloat(h.TotalValue),
			InvestedValue:  toFloat(h.InvestedValue),
			GrossInvested:  toFloat(h.GrossInvested),
			GrossWithdrawn: toFloat(h.GrossWithdrawn),
			TotalPnL:       toFloat(h.TotalPnL),
		})
	}
	return out
}
