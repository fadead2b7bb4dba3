// Package engine implements the Event Loop (C9): a day-by-day OPEN/CLOSE/MARK
// state machine over entry candidates and a shared price index, producing a
// trade log and an equity curve.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/optopsy/backtest-engine/internal/candidates"
	"github.com/optopsy/backtest-engine/internal/models"
	"github.com/optopsy/backtest-engine/internal/pricing"
	"github.com/optopsy/backtest-engine/internal/priceindex"
)

// TradeSelector picks one candidate to open among those eligible on a given
// day, per spec §4.9.
type TradeSelector string

// The four entry selectors.
const (
	SelectNearest        TradeSelector = "nearest"
	SelectHighestPremium TradeSelector = "highest_premium"
	SelectLowestPremium  TradeSelector = "lowest_premium"
	SelectFirst          TradeSelector = "first"
)

// SignalFunc is the signal-evaluation capability the core consumes as an
// external interface (§4.11): a pure function of past OHLCV, already bound
// to its spec and table by the caller, evaluated at one date.
type SignalFunc func(today time.Time) bool

// Params holds the backtest's simulation parameters (§6 "backtest" tool
// surface entry point, minus strategy/max_entry_dte/exit_dte which RunBacktest
// takes directly).
type Params struct {
	Capital      float64
	Quantity     int
	Multiplier   float64
	MaxPositions int
	StopLoss     *float64 // fraction of |entry_cost|
	TakeProfit   *float64 // fraction of |entry_cost|
	MaxHoldDays  *int
	Selector     TradeSelector
	EntrySignal  SignalFunc
	ExitSignal   SignalFunc
	Slippage     models.SlippageModel
	Commission   *models.CommissionSchedule
}

// Result is RunBacktest's output: the trade log, the equity curve, and
// whether the run ended early due to cancellation.
type Result struct {
	Trades                   []models.TradeRecord
	Equity                   []models.EquityPoint
	OpenPositions            []models.Position
	Cancelled                bool
	InsufficientCapitalSkips int
}

type openPosition struct {
	models.Position
	lastQuote []models.QuoteSnapshot // per leg, most recently observed quote
}

// RunBacktest runs the full event loop described in spec §4.9 for one
// strategy over chain. maxEntryDTE and exitDTE bound candidate generation
// exactly as they do for the evaluate path (C2/C3).
func RunBacktest(ctx context.Context, chain *models.OptionsChain, strategy models.StrategyDef, maxEntryDTE, exitDTE int, p Params) (*Result, error) {
	if err := validateParams(strategy, maxEntryDTE, exitDTE, p); err != nil {
		return nil, err
	}

	multiplier := p.Multiplier
	if multiplier == 0 {
		multiplier = 100
	}

	table := priceindex.Build(chain)
	allCandidates := candidates.Build(chain, strategy, maxEntryDTE, exitDTE)
	byDate := candidates.ByDate(allCandidates)
	tradingDays := table.TradingDays()

	cash := p.Capital
	var open []*openPosition
	var closed []models.TradeRecord
	var equity []models.EquityPoint
	insufficientCapitalSkips := 0

	for _, today := range tradingDays {
		// OPEN phase.
		remaining := append([]models.EntryCandidate(nil), byDate[today.Unix()]...)
		if p.EntrySignal != nil {
			remaining = filterBySignal(remaining, p.EntrySignal, today)
		}
		for len(open) < p.MaxPositions && len(remaining) > 0 {
			idx := selectCandidate(remaining, p.Selector, strategy)
			chosen := remaining[idx]
			remaining = append(remaining[:idx], remaining[idx+1:]...)

			pos, entryCost, commissionEntry := openPositionFrom(chosen, p.Quantity, multiplier, p.Slippage, p.Commission)
			totalDebit := entryCost + commissionEntry
			if cash < totalDebit {
				insufficientCapitalSkips++
				continue
			}
			cash -= totalDebit
			open = append(open, pos)
		}

		// CLOSE phase.
		var stillOpen []*openPosition
		var unrealizedPnL float64
		for _, pos := range open {
			currentValue, staleTriggered := markPosition(pos, table, today, p.Slippage, multiplier)
			sameDay := pos.OpenDate.Equal(today)

			reason, shouldClose := evaluateExit(pos, today, exitDTE, currentValue, staleTriggered, sameDay, p)
			if !shouldClose {
				stillOpen = append(stillOpen, pos)
				unrealizedPnL += currentValue - pos.EntryCost
				continue
			}

			commissionExit := pricing.Commission(p.Commission, totalContracts(pos.Legs, pos.Quantity))
			pnl := currentValue - pos.EntryCost - commissionExit
			cash += currentValue - commissionExit
			pos.Status = models.PositionClosed

			closed = append(closed, models.TradeRecord{
				EntryDate:  pos.OpenDate,
				ExitDate:   today,
				Legs:       pos.Legs,
				Quantity:   pos.Quantity,
				EntryCost:  pos.EntryCost,
				ExitCost:   currentValue,
				PnL:        pnl,
				DaysHeld:   pos.DaysHeld(today),
				ExitReason: reason,
			})
		}
		open = stillOpen

		// MARK phase.
		var realizedPnL float64
		for _, t := range closed {
			realizedPnL += t.PnL
		}
		equity = append(equity, models.EquityPoint{
			Datetime: today,
			Equity:   p.Capital + realizedPnL + unrealizedPnL,
		})

		if ctx.Err() != nil {
			return &Result{Trades: closed, Equity: equity, OpenPositions: positionsOf(open), Cancelled: true, InsufficientCapitalSkips: insufficientCapitalSkips}, nil
		}
	}

	return &Result{Trades: closed, Equity: equity, OpenPositions: positionsOf(open), InsufficientCapitalSkips: insufficientCapitalSkips}, nil
}

func positionsOf(open []*openPosition) []models.Position {
	out := make([]models.Position, len(open))
	for i, p := range open {
		out[i] = p.Position
	}
	return out
}

func validateParams(strategy models.StrategyDef, maxEntryDTE, exitDTE int, p Params) error {
	if err := strategy.Validate(); err != nil {
		return err
	}
	if maxEntryDTE < exitDTE || exitDTE < 0 {
		return models.NewValidationError("max_entry_dte (%d) must be >= exit_dte (%d) >= 0", maxEntryDTE, exitDTE)
	}
	if p.Capital <= 0 {
		return models.NewValidationError("capital must be > 0, got %.2f", p.Capital)
	}
	if p.Quantity <= 0 {
		return models.NewValidationError("quantity must be > 0, got %d", p.Quantity)
	}
	if p.MaxPositions < 1 {
		return models.NewValidationError("max_positions must be >= 1, got %d", p.MaxPositions)
	}
	return p.Slippage.Validate()
}

func filterBySignal(cands []models.EntryCandidate, signal SignalFunc, today time.Time) []models.EntryCandidate {
	out := make([]models.EntryCandidate, 0, len(cands))
	for _, c := range cands {
		if signal(today) {
			out = append(out, c)
		}
	}
	return out
}

// selectCandidate applies the configured TradeSelector and returns the
// chosen candidate's index within cands.
func selectCandidate(cands []models.EntryCandidate, selector TradeSelector, strategy models.StrategyDef) int {
	switch selector {
	case SelectHighestPremium:
		best := 0
		for i := 1; i < len(cands); i++ {
			if math.Abs(cands[i].NetPremium) > math.Abs(cands[best].NetPremium) {
				best = i
			}
		}
		return best
	case SelectLowestPremium:
		best := 0
		for i := 1; i < len(cands); i++ {
			if math.Abs(cands[i].NetPremium) < math.Abs(cands[best].NetPremium) {
				best = i
			}
		}
		return best
	case SelectFirst:
		return 0
	case SelectNearest:
		fallthrough
	default:
		target := strategy.Legs[0].Delta.Target
		best := 0
		bestDTE := dteOf(cands[0])
		bestDiff := math.Abs(cands[0].ReferenceDelta() - target)
		for i := 1; i < len(cands); i++ {
			dte := dteOf(cands[i])
			diff := math.Abs(cands[i].ReferenceDelta() - target)
			switch {
			case dte < bestDTE:
				best, bestDTE, bestDiff = i, dte, diff
			case dte == bestDTE && diff < bestDiff:
				best, bestDTE, bestDiff = i, dte, diff
			case dte == bestDTE && diff == bestDiff && cands[i].MinExpiration().Before(cands[best].MinExpiration()):
				best, bestDTE, bestDiff = i, dte, diff
			}
		}
		return best
	}
}

func dteOf(c models.EntryCandidate) int {
	leg := c.NearestLeg()
	return models.DaysBetween(c.EntryDate, leg.Expiration)
}

func openPositionFrom(c models.EntryCandidate, quantity int, multiplier float64, slippage models.SlippageModel, commission *models.CommissionSchedule) (*openPosition, float64, float64) {
	legs := make([]models.CandidateLeg, len(c.Legs))
	copy(legs, c.Legs)

	var entryCost float64
	nContracts := 0
	lastQuote := make([]models.QuoteSnapshot, len(legs))
	for i, leg := range legs {
		fill := pricing.FillPrice(leg.EntryQuote.Bid, leg.EntryQuote.Ask, leg.Side, true, slippage)
		qty := leg.Qty * quantity
		entryCost += pricing.LegCost(fill, leg.Side, qty, multiplier)
		nContracts += qty
		lastQuote[i] = leg.EntryQuote
	}
	commissionEntry := pricing.Commission(commission, nContracts)

	pos := &openPosition{
		Position: models.Position{
			ID:        uuid.NewString(),
			OpenDate:  c.EntryDate,
			Legs:      legs,
			Quantity:  quantity,
			EntryCost: entryCost,
			Status:    models.PositionOpen,
		},
		lastQuote: lastQuote,
	}
	return pos, entryCost, commissionEntry
}

func totalContracts(legs []models.CandidateLeg, quantity int) int {
	n := 0
	for _, l := range legs {
		n += l.Qty * quantity
	}
	return n
}

// markPosition looks up each leg's current quote (falling back to the last
// seen quote when today's is missing) and returns the position's current
// value (sum of leg exit fills) plus whether it is stale beyond the
// one-day grace period.
func markPosition(pos *openPosition, table *priceindex.PriceTable, today time.Time, slippage models.SlippageModel, multiplier float64) (float64, bool) {
	anyMissing := false
	var currentValue float64
	for i, leg := range pos.Legs {
		key := models.PriceKey{Date: today, Expiration: leg.Expiration, Strike: leg.Strike, OptionType: leg.OptionType}
		q, ok := table.Lookup(key)
		if !ok {
			anyMissing = true
			q = pos.lastQuote[i]
		} else {
			pos.lastQuote[i] = q
		}
		fill := pricing.FillPrice(q.Bid, q.Ask, leg.Side, false, slippage)
		currentValue += pricing.LegCost(fill, leg.Side, leg.Qty*pos.Quantity, multiplier)
	}
	if anyMissing {
		pos.StaleDays++
	} else {
		pos.StaleDays = 0
	}
	return currentValue, pos.StaleDays > 1
}

func evaluateExit(pos *openPosition, today time.Time, exitDTE int, currentValue float64, staleTriggered, sameDay bool, p Params) (models.ExitReason, bool) {
	if staleTriggered {
		return models.ExitExpiration, true
	}

	if sameDay {
		// A position's own opening day permits only the same-day
		// Expiration exit (0-DTE); every other exit condition waits
		// until the following trading day.
		if !today.Before(pos.MinExpiration()) {
			return models.ExitExpiration, true
		}
		return "", false
	}

	// Fixed priority order per spec §4.9: DteExit, StopLoss, TakeProfit,
	// MaxHold, Expiration, Signal.
	if pos.DTE(today) <= exitDTE {
		return models.ExitDteExit, true
	}

	pnl := currentValue - pos.EntryCost
	if p.StopLoss != nil && pnl < -*p.StopLoss*math.Abs(pos.EntryCost) {
		return models.ExitStopLoss, true
	}
	if p.TakeProfit != nil && pnl > *p.TakeProfit*math.Abs(pos.EntryCost) {
		return models.ExitTakeProfit, true
	}
	if p.MaxHoldDays != nil && pos.DaysHeld(today) >= *p.MaxHoldDays {
		return models.ExitMaxHold, true
	}
	if !today.Before(pos.MinExpiration()) {
		return models.ExitExpiration, true
	}
	if p.ExitSignal != nil && p.ExitSignal(today) {
		return models.ExitSignal, true
	}
	return "", false
}
