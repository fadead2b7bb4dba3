// Package pricing implements Pricing / Slippage (C5): entry and exit fill
// prices under the four slippage models, and per-leg P&L and commission.
package pricing

import (
	"math"

	"github.com/optopsy/backtest-engine/internal/models"
)

// tick is the fill-price rounding increment; options quote in cents.
const tick = 0.01

// FillPrice returns the fill price for one leg's bid/ask under model, for
// either the opening (isEntry=true) or closing (isEntry=false) transaction.
// All four models reduce to the same signed-adjustment shape: push the mid
// toward the worse-case side for the position's Side, scaled by how much of
// the spread the model concedes. Mid rounds to the nearest tick (it has no
// direction to be conservative about); the other three round toward the
// book's disadvantage — floor a credit, ceil a debit — since the position
// never does better than the price actually quoted.
func FillPrice(bid, ask float64, side models.Side, isEntry bool, model models.SlippageModel) float64 {
	mid := (bid + ask) / 2
	halfSpread := (ask - bid) / 2

	if model.Kind == models.SlippageMid {
		return roundToTick(mid, tick)
	}

	var adj float64
	switch model.Kind {
	case models.SlippageSpread:
		adj = halfSpread
	case models.SlippageLiquidity:
		adj = model.FillRatio * halfSpread
	case models.SlippagePerLeg:
		adj = model.PerLegAmount
	default:
		adj = 0
	}

	sign := float64(side)
	if !isEntry {
		sign = -sign
	}
	price := mid + sign*adj
	// A price that is on a tick up to float noise (1.1 + 0.1 lands a hair
	// above 1.20) is that tick, not one to round past.
	if r := roundToTick(price, tick); math.Abs(r-price) < 1e-9 {
		return r
	}

	if isDebit(side, isEntry) {
		return ceilToTick(price, tick)
	}
	return floorToTick(price, tick)
}

// isDebit reports whether the fill is cash paid out rather than received:
// opening a Long or closing a Short both cost money.
func isDebit(side models.Side, isEntry bool) bool {
	return (side == models.Long) == isEntry
}

// LegPnL returns one leg's P&L: (exit_fill - entry_fill) * side * qty * multiplier.
func LegPnL(entryFill, exitFill float64, side models.Side, qty int, multiplier float64) float64 {
	return (exitFill - entryFill) * float64(side) * float64(qty) * multiplier
}

// LegCost returns one leg's signed value: side * qty * fill * multiplier.
// For an opening fill, positive is cash paid out (debit) and negative is
// cash received (credit); for a closing fill the same value is what the
// leg is worth (positive for a long leg, which returns cash when sold).
// The event loop uses it this way for entry_cost and current_value.
func LegCost(fill float64, side models.Side, qty int, multiplier float64) float64 {
	return float64(side) * float64(qty) * fill * multiplier
}

// Commission returns the commission charged on a fill of nContracts total
// contracts, or 0 if no schedule is configured.
func Commission(schedule *models.CommissionSchedule, nContracts int) float64 {
	if schedule == nil {
		return 0
	}
	return schedule.Compute(nContracts)
}
