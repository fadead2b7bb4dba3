package models

import "time"

// ExitReason records why a position was closed. The event loop evaluates
// conditions in a fixed priority order (§4.9) and stamps the trade with the
// first one that triggered.
type ExitReason string

// The exit reasons. The first six are in the priority order the event loop
// evaluates them (DteExit first, Signal last); the event loop never
// produces ExitAdjustment.
const (
	ExitDteExit     ExitReason = "dte_exit"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitTakeProfit  ExitReason = "take_profit"
	ExitMaxHold     ExitReason = "max_hold"
	ExitExpiration  ExitReason = "expiration"
	ExitSignal      ExitReason = "signal"
	ExitAdjustment  ExitReason = "adjustment"
)

// TradeRecord is a closed position: the event loop's per-trade output.
type TradeRecord struct {
	EntryDate  time.Time
	ExitDate   time.Time
	Legs       []CandidateLeg
	Quantity   int
	EntryCost  float64
	ExitCost   float64
	PnL        float64
	DaysHeld   int
	ExitReason ExitReason
}
