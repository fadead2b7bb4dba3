// Package compare implements the Comparator (C11): it runs C8+C9+C10 for
// each strategy entry in a list with shared simulation parameters,
// executing independent backtests concurrently, and ranks the results.
package compare

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/optopsy/backtest-engine/internal/engine"
	"github.com/optopsy/backtest-engine/internal/metrics"
	"github.com/optopsy/backtest-engine/internal/models"
)

// Entry is one strategy to evaluate within a comparison run.
type Entry struct {
	Strategy    models.StrategyDef
	MaxEntryDTE int
	ExitDTE     int
}

// Row is one strategy's result within a comparison, in the same order as
// the input Entry list.
type Row struct {
	Strategy models.StrategyDef
	Result   *engine.Result
	Metrics  models.PerformanceMetrics
	Err      error
}

// Run backtests every entry against chain with the shared params, bounding
// concurrency to GOMAXPROCS, and returns one Row per entry, index-aligned
// with entries. A per-entry error does not abort the other backtests; it is
// recorded on that entry's Row.
func Run(ctx context.Context, chain *models.OptionsChain, entries []Entry, p engine.Params) ([]Row, error) {
	rows := make([]Row, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			result, err := engine.RunBacktest(ctx, chain, entry.Strategy, entry.MaxEntryDTE, entry.ExitDTE, p)
			rows[i].Strategy = entry.Strategy
			if err != nil {
				rows[i].Err = err
				return nil
			}
			rows[i].Result = result
			rows[i].Metrics = metrics.Compute(result.Equity, result.Trades)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Rank sorts rows primarily by Sharpe descending (NaN last), secondarily by
// total P&L descending. Rows with an Err are sorted last, in input order.
func Rank(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Err != nil) != (b.Err != nil) {
			return a.Err == nil
		}
		if a.Err != nil && b.Err != nil {
			return false
		}
		aNaN, bNaN := math.IsNaN(a.Metrics.Sharpe), math.IsNaN(b.Metrics.Sharpe)
		if aNaN != bNaN {
			return !aNaN
		}
		if aNaN && bNaN {
			return a.Metrics.TotalPnL > b.Metrics.TotalPnL
		}
		if a.Metrics.Sharpe != b.Metrics.Sharpe {
			return a.Metrics.Sharpe > b.Metrics.Sharpe
		}
		return a.Metrics.TotalPnL > b.Metrics.TotalPnL
	})
	return out
}
