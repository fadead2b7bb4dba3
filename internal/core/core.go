// Package core implements the tool-surface facade (§6 of the engine
// specification): the five entry points a caller drives a backtest run
// through — Evaluate, Backtest, Compare, ListStrategies, LoadData. It is
// the one stateful object in the module: the shared options chain is held
// under a sync.RWMutex, mutated only by LoadData, and read by every
// analytical call.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/optopsy/backtest-engine/internal/aggregator"
	"github.com/optopsy/backtest-engine/internal/compare"
	"github.com/optopsy/backtest-engine/internal/config"
	"github.com/optopsy/backtest-engine/internal/datasource"
	"github.com/optopsy/backtest-engine/internal/engine"
	"github.com/optopsy/backtest-engine/internal/joiner"
	"github.com/optopsy/backtest-engine/internal/legfilter"
	"github.com/optopsy/backtest-engine/internal/matcher"
	"github.com/optopsy/backtest-engine/internal/metrics"
	"github.com/optopsy/backtest-engine/internal/models"
	"github.com/optopsy/backtest-engine/internal/storagecache"
	"github.com/optopsy/backtest-engine/internal/strategycatalog"
)

// maxEquityPoints bounds the equity curve returned to callers (§6:
// "down-sampled to <=50 points for transport").
const maxEquityPoints = 50

// Engine is the facade's one stateful object.
type Engine struct {
	mu          sync.RWMutex
	chain       *models.OptionsChain
	chainSymbol string

	catalog *strategycatalog.Catalog
	loader  *datasource.Loader
	cache   storagecache.Store // optional; nil disables run caching
	cfg     *config.Config
	logger  *logrus.Logger
}

// New builds an Engine from cfg. catalog defaults to strategycatalog.Default()
// when nil; cache may be nil to disable run caching.
func New(cfg *config.Config, catalog *strategycatalog.Catalog, cache storagecache.Store, logger *logrus.Logger) *Engine {
	if catalog == nil {
		catalog = strategycatalog.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		catalog: catalog,
		loader:  datasource.NewLoader(cfg.Datasource.LocalCacheDir),
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

// LegOverride patches one leg of a catalogued strategy by position. Any
// zero-value field is left at the catalogue's value; to override Delta,
// set all three of Target/Min/Max (the TargetRange zero value means "no
// override", so a caller overriding delta always supplies the full range).
type LegOverride struct {
	Index int
	Qty   int
	Delta models.TargetRange
}

func (e *Engine) resolveStrategy(strategyName string, overrides []LegOverride) (models.StrategyDef, error) {
	def, err := e.catalog.Get(strategyName)
	if err != nil {
		return models.StrategyDef{}, err
	}
	if len(overrides) == 0 {
		return def, nil
	}

	legs := append([]models.LegDef(nil), def.Legs...)
	for _, o := range overrides {
		if o.Index < 0 || o.Index >= len(legs) {
			return models.StrategyDef{}, models.NewValidationError(
				"leg override index %d out of range for strategy %q with %d legs", o.Index, strategyName, len(legs))
		}
		leg := legs[o.Index]
		if o.Qty != 0 {
			leg.Qty = o.Qty
		}
		if o.Delta != (models.TargetRange{}) {
			leg.Delta = o.Delta
		}
		legs[o.Index] = leg
	}
	def.Legs = legs
	if err := def.Validate(); err != nil {
		return models.StrategyDef{}, err
	}
	return def, nil
}

func (e *Engine) currentChain() (*models.OptionsChain, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.chain == nil {
		return nil, models.NewDataUnavailableError("no chain loaded; call load_data first")
	}
	return e.chain, nil
}

func validateRangeParams(maxEntryDTE, exitDTE int) error {
	if exitDTE < 0 {
		return models.NewValidationError("exit_dte must be >= 0, got %d", exitDTE)
	}
	if maxEntryDTE < exitDTE {
		return models.NewValidationError("max_entry_dte (%d) must be >= exit_dte (%d)", maxEntryDTE, exitDTE)
	}
	return nil
}

func withTiming(operation string, logger *logrus.Logger, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(operation, status).Inc()
	runDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	entry := logger.WithFields(logrus.Fields{"operation": operation, "duration": elapsed, "status": status})
	if err != nil {
		entry.WithError(err).Warn("tool-surface call failed")
	} else {
		entry.Debug("tool-surface call completed")
	}
	return err
}

// EvaluateRequest is the `evaluate` tool-surface call (§6).
type EvaluateRequest struct {
	StrategyName  string
	LegOverrides  []LegOverride
	MaxEntryDTE   int
	ExitDTE       int
	DTEInterval   float64
	DeltaInterval float64
	Slippage      *models.SlippageModel
	Commission    *models.CommissionSchedule
}

// EvaluateResult is the `evaluate` tool-surface response.
type EvaluateResult struct {
	Strategy       models.StrategyDef
	Buckets        []models.GroupStats
	Best           *models.GroupStats
	Worst          *models.GroupStats
	HighestWinRate *models.GroupStats
}

// Evaluate runs the statistical-screening path (C2-C6): it does not
// simulate capital or open positions, it prices every historical entry
// candidate's matched exit and buckets the resulting P&L by DTE x delta.
func (e *Engine) Evaluate(_ context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	var result *EvaluateResult
	err := withTiming("evaluate", e.logger, func() error {
		strategy, err := e.resolveStrategy(req.StrategyName, req.LegOverrides)
		if err != nil {
			return err
		}
		if err := validateRangeParams(req.MaxEntryDTE, req.ExitDTE); err != nil {
			return err
		}
		if req.DTEInterval <= 0 {
			return models.NewValidationError("dte_interval must be > 0, got %v", req.DTEInterval)
		}
		if req.DeltaInterval <= 0 {
			return models.NewValidationError("delta_interval must be > 0, got %v", req.DeltaInterval)
		}
		slippage := e.resolveSlippage(req.Slippage)
		if err := slippage.Validate(); err != nil {
			return err
		}
		commission := e.resolveCommission(req.Commission)

		chain, err := e.currentChain()
		if err != nil {
			return err
		}

		perLeg := make([][]models.MatchedRow, len(strategy.Legs))
		for i, leg := range strategy.Legs {
			filtered := legfilter.FilterLeg(chain, leg, req.MaxEntryDTE, req.ExitDTE)
			perLeg[i] = matcher.Match(chain, filtered, req.ExitDTE)
		}
		joined := joiner.Join(perLeg, strategy.StrikeOrdering, strategy.IsMultiExpiration())

		priced := aggregator.BuildRows(joined, strategy.Legs, slippage, e.cfg.Pricing.Multiplier, commission)
		if len(priced) == 0 {
			return models.NewInsufficientDataError("no entry candidates survived filtering for strategy %q over dte [%d,%d]", strategy.Name, req.ExitDTE, req.MaxEntryDTE)
		}
		buckets, best, worst, highestWinRate := aggregator.Summarize(priced, req.ExitDTE, req.DTEInterval, req.DeltaInterval)

		result = &EvaluateResult{
			Strategy:       strategy,
			Buckets:        buckets,
			Best:           best,
			Worst:          worst,
			HighestWinRate: highestWinRate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) resolveSlippage(s *models.SlippageModel) models.SlippageModel {
	if s != nil {
		return *s
	}
	return e.cfg.DefaultSlippageModel()
}

func (e *Engine) resolveCommission(c *models.CommissionSchedule) *models.CommissionSchedule {
	if c != nil {
		return c
	}
	return e.cfg.Pricing.Commission
}

// BacktestRequest is the `backtest` tool-surface call: everything in
// EvaluateRequest plus the simulation parameters (§6).
type BacktestRequest struct {
	EvaluateRequest

	Capital      float64
	Quantity     int
	Multiplier   float64
	MaxPositions int
	StopLoss     *float64
	TakeProfit   *float64
	MaxHoldDays  *int
	Selector     engine.TradeSelector
	EntrySignal  engine.SignalFunc
	ExitSignal   engine.SignalFunc
}

// BacktestResult is the `backtest` tool-surface response.
type BacktestResult struct {
	RunID                    string
	Strategy                 models.StrategyDef
	Trades                   []models.TradeRecord
	Equity                   []models.EquityPoint
	Metrics                  models.PerformanceMetrics
	Cancelled                bool
	InsufficientCapitalSkips int
}

// Backtest runs the full event-driven simulation (C8-C10) and returns a
// trade log, a down-sampled equity curve, and derived risk metrics.
func (e *Engine) Backtest(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	var result *BacktestResult
	err := withTiming("backtest", e.logger, func() error {
		strategy, err := e.resolveStrategy(req.StrategyName, req.LegOverrides)
		if err != nil {
			return err
		}
		if err := validateRangeParams(req.MaxEntryDTE, req.ExitDTE); err != nil {
			return err
		}
		if req.Capital <= 0 {
			return models.NewValidationError("capital must be > 0, got %v", req.Capital)
		}
		if req.Quantity <= 0 {
			return models.NewValidationError("quantity must be > 0, got %d", req.Quantity)
		}
		multiplier := req.Multiplier
		if multiplier == 0 {
			multiplier = e.cfg.Pricing.Multiplier
		}
		if multiplier <= 0 {
			return models.NewValidationError("multiplier must be > 0, got %v", multiplier)
		}
		if req.MaxPositions < 1 {
			return models.NewValidationError("max_positions must be >= 1, got %d", req.MaxPositions)
		}
		slippage := e.resolveSlippage(req.Slippage)
		if err := slippage.Validate(); err != nil {
			return err
		}

		chain, err := e.currentChain()
		if err != nil {
			return err
		}

		params := engine.Params{
			Capital:      req.Capital,
			Quantity:     req.Quantity,
			Multiplier:   multiplier,
			MaxPositions: req.MaxPositions,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			MaxHoldDays:  req.MaxHoldDays,
			Selector:     req.Selector,
			EntrySignal:  req.EntrySignal,
			ExitSignal:   req.ExitSignal,
			Slippage:     slippage,
			Commission:   e.resolveCommission(req.Commission),
		}

		cacheKey := backtestCacheKey(req, strategy)
		if e.cache != nil {
			if payload, ok, cacheErr := e.cache.Get(cacheKey); cacheErr == nil && ok {
				var cached BacktestResult
				if json.Unmarshal(payload, &cached) == nil {
					result = &cached
					return nil
				}
			}
		}

		run, err := engine.RunBacktest(ctx, chain, strategy, req.MaxEntryDTE, req.ExitDTE, params)
		if err != nil {
			return err
		}

		openPositionsGauge.Set(float64(len(run.OpenPositions)))

		result = &BacktestResult{
			RunID:                    uuid.NewString(),
			Strategy:                 strategy,
			Trades:                   run.Trades,
			Equity:                   downsample(run.Equity, maxEquityPoints),
			Metrics:                  metrics.Compute(run.Equity, run.Trades),
			Cancelled:                run.Cancelled,
			InsufficientCapitalSkips: run.InsufficientCapitalSkips,
		}

		if e.cache != nil {
			if payload, marshalErr := json.Marshal(result); marshalErr == nil {
				_ = e.cache.Put(cacheKey, payload, e.cfg.Cache.TTL)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func backtestCacheKey(req BacktestRequest, strategy models.StrategyDef) string {
	return fmt.Sprintf("backtest:%s:%d:%d:%.6f:%d:%d", strategy.Name, req.MaxEntryDTE, req.ExitDTE, req.Capital, req.Quantity, req.MaxPositions)
}

// downsample reduces points to at most n entries, keeping the first and
// last and evenly striding the rest, per §6's transport bound.
func downsample(points []models.EquityPoint, n int) []models.EquityPoint {
	if len(points) <= n {
		return points
	}
	out := make([]models.EquityPoint, 0, n)
	step := float64(len(points)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		idx := int(float64(i) * step)
		if idx >= len(points) {
			idx = len(points) - 1
		}
		out = append(out, points[idx])
	}
	return out
}

// CompareEntry is one strategy within a `compare` call.
type CompareEntry struct {
	StrategyName string
	LegOverrides []LegOverride
	MaxEntryDTE  int
	ExitDTE      int
}

// CompareRequest is the `compare` tool-surface call: a list of
// evaluate-style entries sharing one set of simulation parameters.
type CompareRequest struct {
	Entries []CompareEntry

	Capital      float64
	Quantity     int
	Multiplier   float64
	MaxPositions int
	StopLoss     *float64
	TakeProfit   *float64
	MaxHoldDays  *int
	Selector     engine.TradeSelector
	EntrySignal  engine.SignalFunc
	ExitSignal   engine.SignalFunc
	Slippage     *models.SlippageModel
	Commission   *models.CommissionSchedule
}

// CompareRow is one strategy's outcome within a comparison, in ranked order.
type CompareRow struct {
	StrategyName string
	Metrics      models.PerformanceMetrics
	Error        string
}

// CompareResult is the `compare` tool-surface response.
type CompareResult struct {
	Rows []CompareRow // ranked, best first
}

// Compare backtests every entry against the shared chain with shared
// simulation parameters, running independent backtests concurrently
// (C11), and returns them ranked best-first.
func (e *Engine) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	var result *CompareResult
	err := withTiming("compare", e.logger, func() error {
		if len(req.Entries) == 0 {
			return models.NewValidationError("compare requires at least one entry")
		}
		if req.Capital <= 0 {
			return models.NewValidationError("capital must be > 0, got %v", req.Capital)
		}
		if req.MaxPositions < 1 {
			return models.NewValidationError("max_positions must be >= 1, got %d", req.MaxPositions)
		}
		slippage := e.resolveSlippage(req.Slippage)
		if err := slippage.Validate(); err != nil {
			return err
		}
		multiplier := req.Multiplier
		if multiplier == 0 {
			multiplier = e.cfg.Pricing.Multiplier
		}

		chain, err := e.currentChain()
		if err != nil {
			return err
		}

		entries := make([]compare.Entry, len(req.Entries))
		for i, ce := range req.Entries {
			strategy, err := e.resolveStrategy(ce.StrategyName, ce.LegOverrides)
			if err != nil {
				return err
			}
			if err := validateRangeParams(ce.MaxEntryDTE, ce.ExitDTE); err != nil {
				return err
			}
			entries[i] = compare.Entry{Strategy: strategy, MaxEntryDTE: ce.MaxEntryDTE, ExitDTE: ce.ExitDTE}
		}

		params := engine.Params{
			Capital:      req.Capital,
			Quantity:     req.Quantity,
			Multiplier:   multiplier,
			MaxPositions: req.MaxPositions,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			MaxHoldDays:  req.MaxHoldDays,
			Selector:     req.Selector,
			EntrySignal:  req.EntrySignal,
			ExitSignal:   req.ExitSignal,
			Slippage:     slippage,
			Commission:   e.resolveCommission(req.Commission),
		}

		rows, err := compare.Run(ctx, chain, entries, params)
		if err != nil {
			return err
		}
		ranked := compare.Rank(rows)

		out := make([]CompareRow, len(ranked))
		for i, r := range ranked {
			row := CompareRow{StrategyName: r.Strategy.Name, Metrics: r.Metrics}
			if r.Err != nil {
				row.Error = r.Err.Error()
			}
			out[i] = row
		}
		result = &CompareResult{Rows: out}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListStrategies returns the full built-in strategy catalogue (§6).
func (e *Engine) ListStrategies(context.Context) ([]models.StrategyDef, error) {
	return e.catalog.List(), nil
}

// LoadDataRequest is the `load_data` tool-surface call.
type LoadDataRequest struct {
	Symbol    string
	StartDate string // informational only; the local Loader reads the whole cached file
	EndDate   string
}

// LoadData loads symbol's chain from the local cache, installs it as the
// shared chain under the write lock, and returns its summary (§6).
func (e *Engine) LoadData(_ context.Context, req LoadDataRequest) (*datasource.ChainSummary, error) {
	var summary datasource.ChainSummary
	err := withTiming("load_data", e.logger, func() error {
		if req.Symbol == "" {
			return models.NewValidationError("symbol is required")
		}
		chain, s, err := e.loader.Load(req.Symbol)
		if err != nil {
			return err
		}
		summary = s

		e.mu.Lock()
		e.chain = chain
		e.chainSymbol = req.Symbol
		e.mu.Unlock()

		e.logger.WithFields(logrus.Fields{
			"symbol": req.Symbol, "rows": summary.RowCount,
			"start": summary.StartDate, "end": summary.EndDate,
		}).Info("loaded options chain")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
