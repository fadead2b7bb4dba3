package models

import "time"

// PositionStatus is the lifecycle stage of a Position.
type PositionStatus string

// The two position lifecycle stages. A Position is created Open by the
// event loop's OPEN phase and becomes Closed exactly once, at which point
// it is recorded as a TradeRecord and dropped from the open set.
const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is one open multi-leg trade being tracked by the event loop.
type Position struct {
	ID        string
	OpenDate  time.Time
	Legs      []CandidateLeg
	Quantity  int
	EntryCost float64
	Status    PositionStatus
	StaleDays int // consecutive trading days with at least one leg quote missing
}

// Expirations returns each leg's expiration date.
func (p *Position) Expirations() []time.Time {
	out := make([]time.Time, len(p.Legs))
	for i, leg := range p.Legs {
		out[i] = leg.Expiration
	}
	return out
}

// MinExpiration returns the earliest leg expiration, used for the
// Expiration exit condition on multi-expiration positions per §9.
func (p *Position) MinExpiration() time.Time {
	min := p.Legs[0].Expiration
	for _, leg := range p.Legs[1:] {
		if leg.Expiration.Before(min) {
			min = leg.Expiration
		}
	}
	return min
}

// DTE returns days-to-expiration relative to today, using the leg with the
// nearest expiration (identical to the single-expiration case when all legs
// share one expiration), per §9.
func (p *Position) DTE(today time.Time) int {
	nearest := p.Legs[0].Expiration
	for _, leg := range p.Legs[1:] {
		if leg.Expiration.Before(nearest) {
			nearest = leg.Expiration
		}
	}
	return DaysBetween(today, nearest)
}

// DaysHeld returns the number of whole days the position has been open as
// of today.
func (p *Position) DaysHeld(today time.Time) int {
	return DaysBetween(p.OpenDate, today)
}
