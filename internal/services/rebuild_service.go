package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tropicaldog17/folio/internal/cache"
	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/repositories"
)

// Cache keys written by a rebuild and read by reporting.
func positionsKey(keys cache.Keys) string { return keys.Key(cache.NamespacePositions, "all") }
func historyKey(keys cache.Keys, base string) string {
	return keys.Key(cache.NamespaceHistory, base, "rows")
}
func valuedKey(keys cache.Keys, base string) string {
	return keys.Key(cache.NamespaceHistory, base, "valued")
}

// RebuildDeps groups what the rebuild pipeline reads and writes.
type RebuildDeps struct {
	Transactions repositories.TransactionRepository
	Tickers      repositories.TickerRepository
	Prices       repositories.PriceRepository
	Positions    repositories.PositionRepository
	History      repositories.HistoryRepository
	FX           FXService
	Cache        cache.Cache
	Keys         cache.Keys
	CacheTTL     time.Duration
}

// rebuildService implements the RebuildService interface
type rebuildService struct {
	deps   RebuildDeps
	opts   engine.Options
	logger *zap.Logger
}

// NewRebuildService creates a rebuild service. opts carries the FX policy and
// max lag; its BaseCurrency is the default for history rebuilds.
func NewRebuildService(deps RebuildDeps, opts engine.Options, logger *zap.Logger) RebuildService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &rebuildService{deps: deps, opts: opts, logger: logger}
}

// RebuildPositions recomputes the positions table from the ledger.
func (s *rebuildService) RebuildPositions(ctx context.Context) (*RebuildResult, error) {
	started := time.Now()

	var (
		txs         []*models.Transaction
		points      []*models.PricePoint
		instruments map[string]string
		currencies  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.deps.Transactions.List(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.deps.Prices.ListWithCurrency(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		instruments, err = s.deps.Tickers.CurrencyMap(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		currencies, err = s.deps.Transactions.ListCurrencies(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load rebuild inputs: %w", err)
	}

	prices := toEnginePrices(points)
	involved := currencySet(currencies)
	for _, tx := range txs {
		if c, ok := instruments[tx.Ticker]; ok {
			involved[strings.ToUpper(c)] = struct{}{}
		}
	}
	for _, p := range prices {
		if p.Currency != "" && !engine.IsPairTicker(p.Ticker) {
			involved[p.Currency] = struct{}{}
		}
	}
	prices, err := s.ensurePairs(ctx, keysOf(involved), "", prices)
	if err != nil {
		return nil, err
	}

	result, err := engine.BuildPositions(toEngineTransactions(txs), prices, instruments, s.opts)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Positions.ReplaceAll(ctx, positionModels(result.Rows)); err != nil {
		return nil, err
	}

	s.logWarnings("positions", result.Warnings)
	s.invalidate(ctx, cache.NamespacePositions)
	s.store(ctx, positionsKey(s.deps.Keys), result.Rows)

	s.logger.Info("Positions rebuilt",
		zap.Int("transactions", len(txs)),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("took", time.Since(started)))
	return &RebuildResult{
		Positions: len(result.Rows),
		Warnings:  result.Warnings,
		Duration:  time.Since(started).String(),
	}, nil
}

// RebuildHistory values the stored positions in baseCurrency and replaces the
// portfolio history table.
func (s *rebuildService) RebuildHistory(ctx context.Context, baseCurrency string) (*RebuildResult, error) {
	started := time.Now()
	base := s.baseOrDefault(baseCurrency)

	var (
		stored []*models.Position
		points []*models.PricePoint
		txs    []*models.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stored, err = s.deps.Positions.List(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.deps.Transactions.List(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.deps.Prices.ListWithCurrency(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load valuation inputs: %w", err)
	}

	rows := positionRows(stored)
	involved := make(map[string]struct{})
	for _, r := range rows {
		involved[r.Currency] = struct{}{}
	}
	ledger := toEngineTransactions(txs)
	for _, tx := range ledger {
		if !tx.Type.IsTrade() && tx.Currency != "" {
			involved[strings.ToUpper(tx.Currency)] = struct{}{}
		}
	}
	prices, err := s.ensurePairs(ctx, keysOf(involved), base, toEnginePrices(points))
	if err != nil {
		return nil, err
	}

	opts := s.opts
	opts.BaseCurrency = base
	valuation, err := engine.Valuate(rows, ledger, prices, opts)
	if err != nil {
		return nil, err
	}
	if err := s.deps.History.ReplaceAll(ctx, historyModels(valuation.History, valuation.BaseCurrency)); err != nil {
		return nil, err
	}

	s.logWarnings("history", valuation.Warnings)
	s.invalidate(ctx, cache.NamespaceHistory)
	s.store(ctx, historyKey(s.deps.Keys, valuation.BaseCurrency), valuation.History)
	s.store(ctx, valuedKey(s.deps.Keys, valuation.BaseCurrency), valuation.Tickers)

	s.logger.Info("Portfolio history rebuilt",
		zap.String("base_currency", valuation.BaseCurrency),
		zap.Int("rows", len(valuation.History)),
		zap.Duration("took", time.Since(started)))
	return &RebuildResult{
		BaseCurrency: valuation.BaseCurrency,
		Positions:    len(rows),
		HistoryRows:  len(valuation.History),
		Warnings:     valuation.Warnings,
		Duration:     time.Since(started).String(),
	}, nil
}

// RebuildAll rebuilds positions and then history.
func (s *rebuildService) RebuildAll(ctx context.Context, baseCurrency string) (*RebuildResult, error) {
	started := time.Now()
	pos, err := s.RebuildPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	hist, err := s.RebuildHistory(ctx, baseCurrency)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	warnings := make([]engine.FXWarning, 0, len(pos.Warnings)+len(hist.Warnings))
	warnings = append(warnings, pos.Warnings...)
	warnings = append(warnings, hist.Warnings...)
	return &RebuildResult{
		BaseCurrency: hist.BaseCurrency,
		Positions:    pos.Positions,
		HistoryRows:  hist.HistoryRows,
		Warnings:     warnings,
		Duration:     time.Since(started).String(),
	}, nil
}

func (s *rebuildService) baseOrDefault(base string) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = strings.ToUpper(s.opts.BaseCurrency)
	}
	return base
}

func (s *rebuildService) ensurePairs(ctx context.Context, currencies []string, target string, prices []engine.PriceObservation) ([]engine.PriceObservation, error) {
	if s.deps.FX == nil || len(currencies) == 0 {
		return prices, nil
	}
	merged, err := s.deps.FX.EnsurePairs(ctx, currencies, target, prices)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure FX pairs: %w", err)
	}
	return merged, nil
}

func (s *rebuildService) logWarnings(stage string, warnings []engine.FXWarning) {
	for _, w := range warnings {
		s.logger.Warn("Degraded FX conversion",
			zap.String("stage", stage),
			zap.String("from", w.From),
			zap.String("to", w.To),
			zap.String("kind", string(w.Kind)),
			zap.Time("first", w.First),
			zap.Time("last", w.Last),
			zap.Int("count", w.Count))
	}
}

func (s *rebuildService) invalidate(ctx context.Context, namespace string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.DeleteByPrefix(ctx, s.deps.Keys.Namespace(namespace)); err != nil {
		s.logger.Warn("Failed to invalidate cache", zap.String("namespace", namespace), zap.Error(err))
	}
}

func (s *rebuildService) store(ctx context.Context, key string, value interface{}) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, key, value, s.deps.CacheTTL); err != nil {
		s.logger.Warn("Failed to cache rebuild result", zap.String("key", key), zap.Error(err))
	}
}

func currencySet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

func keysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
