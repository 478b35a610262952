package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
)

type mockQuote struct {
	currency string
	close    float64
}

// MockProvider serves constant daily closes for a fixed set of instruments,
// for development and tests. FX pairs are answered from either direction.
type MockProvider struct {
	mu     sync.RWMutex
	quotes map[string]mockQuote
}

// NewMockProvider creates a provider seeded with a few equities and rates.
func NewMockProvider() *MockProvider {
	p := &MockProvider{quotes: make(map[string]mockQuote)}
	p.SetQuote("AAPL", "USD", 190)
	p.SetQuote("MSFT", "USD", 410)
	p.SetQuote("SAP.DE", "EUR", 180)
	p.SetQuote("VOD.L", "GBP", 0.7)
	p.SetQuote("EURUSD=X", "USD", 1.09)
	p.SetQuote("GBPUSD=X", "USD", 1.27)
	p.SetQuote("USDJPY=X", "JPY", 150)
	return p
}

// SetQuote registers or replaces an instrument.
func (p *MockProvider) SetQuote(ticker, currency string, close float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[strings.ToUpper(ticker)] = mockQuote{currency: strings.ToUpper(currency), close: close}
}

func (p *MockProvider) quote(ticker string) (mockQuote, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ticker = strings.ToUpper(ticker)
	if q, ok := p.quotes[ticker]; ok {
		return q, true
	}
	from, to, ok := engine.ParsePairTicker(ticker)
	if !ok {
		return mockQuote{}, false
	}
	// Try reverse rate
	if q, ok := p.quotes[engine.PairTicker(to, from)]; ok && q.close != 0 {
		return mockQuote{currency: to, close: 1 / q.close}, true
	}
	return mockQuote{}, false
}

// FetchPrices returns one bar per weekday between start and end.
func (p *MockProvider) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) ([]*models.Price, error) {
	var prices []*models.Price
	var missing []string
	for _, ticker := range tickers {
		q, ok := p.quote(ticker)
		if !ok {
			missing = append(missing, ticker)
			continue
		}
		c := decimal.NewFromFloat(q.close)
		for _, d := range engine.DateRange(start, end) {
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			prices = append(prices, &models.Price{
				Ticker: strings.ToUpper(ticker),
				Date:   d,
				Open:   c,
				High:   c,
				Low:    c,
				Close:  c,
			})
		}
	}
	if len(missing) > 0 {
		return prices, fmt.Errorf("mock provider has no data for %s", strings.Join(missing, ", "))
	}
	return prices, nil
}

func (p *MockProvider) FetchTickerInfo(ctx context.Context, ticker string) (*models.TickerInfo, error) {
	q, ok := p.quote(ticker)
	if !ok {
		return nil, fmt.Errorf("mock provider has no data for %s", ticker)
	}
	info := &models.TickerInfo{Ticker: strings.ToUpper(ticker), Currency: q.currency}
	if engine.IsPairTicker(ticker) {
		assetType := models.AssetTypeCurrency
		info.AssetType = &assetType
	}
	return info, nil
}
