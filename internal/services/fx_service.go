package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/repositories"
)

// FXServiceImpl fills in missing FX pairs from the market data provider
type FXServiceImpl struct {
	provider     MarketDataProvider
	prices       repositories.PriceRepository
	tickers      repositories.TickerRepository
	fetchTimeout time.Duration
	lookback     time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewFXService creates a new FX service. Fetches are bounded by fetchTimeout
// and cover lookbackDays of history.
func NewFXService(provider MarketDataProvider, prices repositories.PriceRepository, tickers repositories.TickerRepository, fetchTimeout time.Duration, lookbackDays int, logger *zap.Logger) *FXServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FXServiceImpl{
		provider:     provider,
		prices:       prices,
		tickers:      tickers,
		fetchTimeout: fetchTimeout,
		lookback:     time.Duration(lookbackDays) * 24 * time.Hour,
		now:          time.Now,
		logger:       logger,
	}
}

// EnsurePairs resolves the pairs needed to convert currencies into target
// (every pair among them when target is empty). Missing pairs are fetched in
// both directions, stored, and merged into the returned price set. A failed or
// timed out fetch is logged and the stored rates are used as they are; the
// engine's FX policy then decides what a gap means.
func (s *FXServiceImpl) EnsurePairs(ctx context.Context, currencies []string, target string, prices []engine.PriceObservation) ([]engine.PriceObservation, error) {
	have := make(map[string]bool)
	var first time.Time
	for _, p := range prices {
		if engine.IsPairTicker(p.Ticker) && p.Close > 0 {
			have[p.Ticker] = true
		}
		if first.IsZero() || p.Date.Before(first) {
			first = p.Date
		}
	}
	_, missing := engine.NeededPairs(currencies, target, func(t string) bool { return have[t] })
	if len(missing) == 0 || s.provider == nil {
		return prices, nil
	}

	end := models.DateOnly(s.now())
	start := end.Add(-s.lookback)
	if !first.IsZero() && first.Before(start) {
		start = first
	}

	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	fetched, err := s.provider.FetchPrices(fetchCtx, missing, start, end)
	if err != nil {
		s.logger.Warn("FX pair fetch incomplete, continuing with stored rates",
			zap.Strings("pairs", missing), zap.Int("fetched", len(fetched)), zap.Error(err))
	}
	if len(fetched) == 0 {
		return prices, nil
	}

	if _, err := s.prices.UpsertBulk(ctx, fetched); err != nil {
		return nil, err
	}
	s.registerPairs(ctx, fetched)
	s.logger.Info("Fetched missing FX pairs", zap.Strings("pairs", missing), zap.Int("rows", len(fetched)))

	merged := make([]engine.PriceObservation, 0, len(prices)+len(fetched))
	merged = append(merged, prices...)
	merged = append(merged, pricesToObservations(fetched)...)
	return merged, nil
}

// registerPairs records reference data for newly stored pair tickers so they
// show up in refreshes.
func (s *FXServiceImpl) registerPairs(ctx context.Context, fetched []*models.Price) {
	if s.tickers == nil {
		return
	}
	seen := make(map[string]bool)
	for _, p := range fetched {
		if seen[p.Ticker] {
			continue
		}
		seen[p.Ticker] = true
		_, to, ok := engine.ParsePairTicker(p.Ticker)
		if !ok {
			continue
		}
		assetType := models.AssetTypeCurrency
		info := &models.TickerInfo{Ticker: p.Ticker, Currency: to, AssetType: &assetType}
		if err := s.tickers.Upsert(ctx, info); err != nil {
			s.logger.Warn("Failed to register FX pair", zap.String("ticker", p.Ticker), zap.Error(err))
		}
	}
}
