package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/cache"
	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/repositories"
)

// refreshService implements the RefreshService interface
type refreshService struct {
	provider     MarketDataProvider
	transactions repositories.TransactionRepository
	tickers      repositories.TickerRepository
	prices       repositories.PriceRepository
	cache        cache.Cache
	keys         cache.Keys
	lookbackDays int
	now          func() time.Time
	logger       *zap.Logger
}

// NewRefreshService creates a refresh service that pulls lookbackDays of
// history for tickers it has not seen before.
func NewRefreshService(provider MarketDataProvider, transactions repositories.TransactionRepository, tickers repositories.TickerRepository, prices repositories.PriceRepository, c cache.Cache, keys cache.Keys, lookbackDays int, logger *zap.Logger) RefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &refreshService{
		provider:     provider,
		transactions: transactions,
		tickers:      tickers,
		prices:       prices,
		cache:        c,
		keys:         keys,
		lookbackDays: lookbackDays,
		now:          time.Now,
		logger:       logger,
	}
}

// RefreshAll fetches every traded ticker and every stored FX pair. A ticker
// with stored prices is fetched from its latest stored day on; others over the
// whole lookback window. One failing ticker does not stop the others.
func (s *refreshService) RefreshAll(ctx context.Context) (*RefreshResult, error) {
	tickers, err := s.knownTickers(ctx)
	if err != nil {
		return nil, err
	}
	result := &RefreshResult{Tickers: len(tickers)}
	if len(tickers) == 0 {
		return result, nil
	}

	if _, err := s.RefreshTickerInfo(ctx, tickers); err != nil {
		s.logger.Warn("Ticker info refresh incomplete", zap.Error(err))
	}

	end := models.DateOnly(s.now())
	windowStart := end.AddDate(0, 0, -s.lookbackDays)
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := windowStart
		latest, err := s.prices.LatestDate(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.After(start) {
			start = *latest
		}

		fetched, err := s.provider.FetchPrices(ctx, []string{ticker}, start, end)
		if err != nil {
			s.logger.Warn("Failed to fetch prices", zap.String("ticker", ticker), zap.Error(err))
			result.Failed = append(result.Failed, ticker)
		}
		if len(fetched) == 0 {
			continue
		}
		n, err := s.prices.UpsertBulk(ctx, fetched)
		if err != nil {
			return nil, err
		}
		result.Prices += n
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPrefix(ctx, s.keys.Namespace(cache.NamespacePrices)); err != nil {
			s.logger.Warn("Failed to invalidate price cache", zap.Error(err))
		}
	}
	s.logger.Info("Market data refreshed",
		zap.Int("tickers", result.Tickers),
		zap.Int("prices", result.Prices),
		zap.Strings("failed", result.Failed))
	return result, nil
}

// RefreshTickerInfo stores reference data for tickers. Pair tickers get their
// quote currency without a provider round trip.
func (s *refreshService) RefreshTickerInfo(ctx context.Context, tickers []string) (int, error) {
	var stored int
	var failed []string
	for _, ticker := range tickers {
		var info *models.TickerInfo
		if _, to, ok := engine.ParsePairTicker(ticker); ok {
			assetType := models.AssetTypeCurrency
			info = &models.TickerInfo{Ticker: ticker, Currency: to, AssetType: &assetType}
		} else {
			fetched, err := s.provider.FetchTickerInfo(ctx, ticker)
			if err != nil {
				s.logger.Warn("Failed to fetch ticker info", zap.String("ticker", ticker), zap.Error(err))
				failed = append(failed, ticker)
				continue
			}
			info = fetched
		}
		if err := s.tickers.Upsert(ctx, info); err != nil {
			return stored, err
		}
		stored++
	}
	if len(failed) > 0 {
		return stored, fmt.Errorf("no ticker info for %v", failed)
	}
	return stored, nil
}

func (s *refreshService) ListTickers(ctx context.Context) ([]*models.TickerInfo, error) {
	return s.tickers.List(ctx)
}

// ListPrices serves price queries, caching each distinct filter until the next
// refresh.
func (s *refreshService) ListPrices(ctx context.Context, filter *models.PriceFilter) ([]*models.Price, error) {
	key := s.keys.Key(cache.NamespacePrices, priceFilterKey(filter))
	if s.cache != nil {
		var cached []*models.Price
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	prices, err := s.prices.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, prices, 0); err != nil {
			s.logger.Debug("Failed to cache prices", zap.Error(err))
		}
	}
	return prices, nil
}

func (s *refreshService) knownTickers(ctx context.Context) ([]string, error) {
	traded, err := s.transactions.ListTickers(ctx)
	if err != nil {
		return nil, err
	}
	priced, err := s.prices.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(traded)+len(priced))
	for _, t := range traded {
		set[t] = struct{}{}
	}
	for _, t := range priced {
		set[t] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		if t != "" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

func priceFilterKey(filter *models.PriceFilter) string {
	if filter == nil {
		return "all"
	}
	tickers := append([]string(nil), filter.Tickers...)
	sort.Strings(tickers)
	day := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	}
	return fmt.Sprintf("%v:%s:%s", tickers, day(filter.StartDate), day(filter.EndDate))
}
