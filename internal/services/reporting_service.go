package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/cache"
	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/repositories"
)

// ReportingDeps groups the stores reporting reads from.
type ReportingDeps struct {
	Positions repositories.PositionRepository
	History   repositories.HistoryRepository
	Prices    repositories.PriceRepository
	Cache     cache.Cache
	Keys      cache.Keys
}

// reportingService implements the ReportingService interface
type reportingService struct {
	deps   ReportingDeps
	opts   engine.Options
	logger *zap.Logger
}

// NewReportingService creates a reporting service. opts.BaseCurrency picks
// the cached history to read; stored history is used when it was rebuilt in
// another currency.
func NewReportingService(deps ReportingDeps, opts engine.Options, logger *zap.Logger) ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.BaseCurrency = strings.ToUpper(opts.BaseCurrency)
	return &reportingService{deps: deps, opts: opts, logger: logger}
}

// GetHistory returns history rows between start and end, both optional.
func (s *reportingService) GetHistory(ctx context.Context, start, end *time.Time) ([]engine.HistoryRow, error) {
	var cached []engine.HistoryRow
	if s.cached(ctx, historyKey(s.deps.Keys, s.opts.BaseCurrency), &cached) {
		out := make([]engine.HistoryRow, 0, len(cached))
		for _, h := range cached {
			if inRange(h.Date, start, end) {
				out = append(out, h)
			}
		}
		return out, nil
	}
	rows, err := s.deps.History.List(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return historyRows(rows), nil
}

// GetPositions returns position rows matching filter.
func (s *reportingService) GetPositions(ctx context.Context, filter *models.PositionFilter) ([]engine.PositionRow, error) {
	var cached []engine.PositionRow
	if s.cached(ctx, positionsKey(s.deps.Keys), &cached) {
		if filter == nil {
			return cached, nil
		}
		ticker := strings.ToUpper(filter.Ticker)
		out := make([]engine.PositionRow, 0, len(cached))
		for _, r := range cached {
			if ticker != "" && r.Ticker != ticker {
				continue
			}
			if inRange(r.Date, filter.StartDate, filter.EndDate) {
				out = append(out, r)
			}
		}
		return out, nil
	}
	if filter != nil {
		f := *filter
		f.Ticker = strings.ToUpper(f.Ticker)
		filter = &f
	}
	rows, err := s.deps.Positions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return positionRows(rows), nil
}

// GetSnapshot returns each ticker's latest position on or before asOf.
func (s *reportingService) GetSnapshot(ctx context.Context, asOf time.Time) ([]engine.PositionRow, error) {
	asOf = models.DateOnly(asOf)
	rows, err := s.GetPositions(ctx, &models.PositionFilter{EndDate: &asOf})
	if err != nil {
		return nil, err
	}
	return engine.Snapshot(rows, asOf), nil
}

// GetStats returns per-ticker records and the portfolio record. With ticker
// set only that ticker is reported; PORTFOLIO selects the portfolio record
// alone.
func (s *reportingService) GetStats(ctx context.Context, asOf time.Time, ticker string) (*StatsReport, error) {
	asOf = models.DateOnly(asOf)
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	report := &StatsReport{AsOf: asOf, Tickers: []engine.StatsRecord{}}

	if ticker != engine.PortfolioTicker {
		rows, err := s.GetPositions(ctx, &models.PositionFilter{Ticker: ticker})
		if err != nil {
			return nil, err
		}
		report.Tickers = engine.ComputeStats(rows, asOf, nil)
	}
	if ticker == "" || ticker == engine.PortfolioTicker {
		history, base, err := s.history(ctx)
		if err != nil {
			return nil, err
		}
		report.Portfolio = engine.PortfolioStats(history, base, asOf, nil)
	}
	return report, nil
}

// GetWeights returns each ticker's share of base-currency market value at
// asOf. Without cached valued rows the stored positions are revalued.
func (s *reportingService) GetWeights(ctx context.Context, asOf time.Time) ([]engine.Weight, error) {
	var valued []engine.ValuedRow
	if !s.cached(ctx, valuedKey(s.deps.Keys, s.opts.BaseCurrency), &valued) {
		stored, err := s.deps.Positions.List(ctx, nil)
		if err != nil {
			return nil, err
		}
		points, err := s.deps.Prices.ListWithCurrency(ctx, nil)
		if err != nil {
			return nil, err
		}
		opts := s.opts
		if latest, err := s.deps.History.Latest(ctx); err == nil && latest != nil && latest.BaseCurrency != "" {
			opts.BaseCurrency = latest.BaseCurrency
		}
		valuation, err := engine.Valuate(positionRows(stored), nil, toEnginePrices(points), opts)
		if err != nil {
			return nil, err
		}
		valued = valuation.Tickers
	}
	return engine.Weights(valued, asOf), nil
}

// history returns the full history and the currency it is in.
func (s *reportingService) history(ctx context.Context) ([]engine.HistoryRow, string, error) {
	var cached []engine.HistoryRow
	if s.cached(ctx, historyKey(s.deps.Keys, s.opts.BaseCurrency), &cached) {
		return cached, s.opts.BaseCurrency, nil
	}
	rows, err := s.deps.History.List(ctx, nil, nil)
	if err != nil {
		return nil, "", err
	}
	base := s.opts.BaseCurrency
	if len(rows) > 0 && rows[0].BaseCurrency != "" {
		base = rows[0].BaseCurrency
	}
	return historyRows(rows), base, nil
}

func (s *reportingService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.deps.Cache == nil {
		return false
	}
	ok, err := s.deps.Cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func inRange(d time.Time, start, end *time.Time) bool {
	if start != nil && d.Before(models.DateOnly(*start)) {
		return false
	}
	if end != nil && d.After(models.DateOnly(*end)) {
		return false
	}
	return true
}
