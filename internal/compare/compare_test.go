package compare

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/optopsy/backtest-engine/internal/engine"
	"github.com/optopsy/backtest-engine/internal/models"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func buildChain() *models.OptionsChain {
	exp := day(30)
	c := &models.OptionsChain{}
	add := func(qd time.Time, strike float64, ot models.OptionType, bid, ask, delta float64) {
		c.QuoteDatetime = append(c.QuoteDatetime, qd)
		c.Expiration = append(c.Expiration, exp)
		c.Strike = append(c.Strike, strike)
		c.OptionType = append(c.OptionType, ot)
		c.Bid = append(c.Bid, bid)
		c.Ask = append(c.Ask, ask)
		c.Delta = append(c.Delta, delta)
		c.Symbol = append(c.Symbol, "SPY")
	}
	add(day(0), 100, models.Call, 1.0, 1.2, 0.30)
	add(day(30), 100, models.Call, 0.0, 0.05, 0.01)
	add(day(0), 90, models.Put, 1.0, 1.2, -0.30)
	add(day(30), 90, models.Put, 0.0, 0.05, -0.01)
	return c
}

func strategyLeg(ot models.OptionType) models.StrategyDef {
	return models.StrategyDef{
		Legs: []models.LegDef{
			{Side: models.Short, OptionType: ot, Qty: 1, Delta: models.TargetRange{Target: 0.30, Min: 0.10, Max: 0.50}},
		},
		StrikeOrdering: models.NoStrikeRule,
	}
}

func TestRun_IndexAlignedResults(t *testing.T) {
	chain := buildChain()
	entries := []Entry{
		{Strategy: strategyLeg(models.Call), MaxEntryDTE: 30, ExitDTE: 0},
		{Strategy: strategyLeg(models.Put), MaxEntryDTE: 30, ExitDTE: 0},
	}
	p := engine.Params{
		Capital: 10000, Quantity: 1, Multiplier: 100, MaxPositions: 1,
		Selector: engine.SelectFirst, Slippage: models.SlippageModel{Kind: models.SlippageMid},
	}

	rows, err := Run(context.Background(), chain, entries, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Strategy.Legs[0].OptionType != models.Call {
		t.Fatalf("expected row 0 to be the call strategy, got %v", rows[0].Strategy.Legs[0].OptionType)
	}
	if rows[1].Strategy.Legs[0].OptionType != models.Put {
		t.Fatalf("expected row 1 to be the put strategy, got %v", rows[1].Strategy.Legs[0].OptionType)
	}
	for _, r := range rows {
		if r.Err != nil {
			t.Fatalf("unexpected per-row error: %v", r.Err)
		}
	}
}

func TestRank_SharpeDescendingNaNLast(t *testing.T) {
	rows := []Row{
		{Metrics: models.PerformanceMetrics{Sharpe: math.NaN(), TotalPnL: 1000}},
		{Metrics: models.PerformanceMetrics{Sharpe: 1.5, TotalPnL: 10}},
		{Metrics: models.PerformanceMetrics{Sharpe: 2.0, TotalPnL: 5}},
	}
	ranked := Rank(rows)
	if ranked[0].Metrics.Sharpe != 2.0 {
		t.Fatalf("expected highest Sharpe first, got %.2f", ranked[0].Metrics.Sharpe)
	}
	if ranked[1].Metrics.Sharpe != 1.5 {
		t.Fatalf("expected second-highest Sharpe second, got %.2f", ranked[1].Metrics.Sharpe)
	}
	if !math.IsNaN(ranked[2].Metrics.Sharpe) {
		t.Fatalf("expected NaN Sharpe ranked last")
	}
}

func TestRank_ErroredRowsSortLast(t *testing.T) {
	rows := []Row{
		{Err: context.DeadlineExceeded},
		{Metrics: models.PerformanceMetrics{Sharpe: 0.1}},
	}
	ranked := Rank(rows)
	if ranked[0].Err != nil {
		t.Fatalf("expected non-errored row first")
	}
	if ranked[1].Err == nil {
		t.Fatalf("expected errored row last")
	}
}
