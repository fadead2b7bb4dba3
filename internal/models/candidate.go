package models

import "time"

// CandidateLeg is one priced, filtered leg of an EntryCandidate or an open
// Position.
type CandidateLeg struct {
	Strike     float64
	OptionType OptionType
	Side       Side
	Qty        int
	Cycle      Cycle
	Expiration time.Time
	EntryQuote QuoteSnapshot
}

// EntryCandidate is a fully joined, priced, strike-ordered multi-leg entry
// eligible for selection on its entry day (C8 output).
type EntryCandidate struct {
	EntryDate  time.Time
	Legs       []CandidateLeg
	NetPremium float64
}

// MinExpiration returns the earliest expiration across the candidate's
// legs, used for Expiration-exit comparisons on multi-expiration
// strategies per §9.
func (c EntryCandidate) MinExpiration() time.Time {
	min := c.Legs[0].Expiration
	for _, leg := range c.Legs[1:] {
		if leg.Expiration.Before(min) {
			min = leg.Expiration
		}
	}
	return min
}

// NearestLeg returns the leg with the nearest (smallest) expiration, used
// to define "dte" on multi-expiration strategies for DteExit comparisons
// per §9.
func (c EntryCandidate) NearestLeg() CandidateLeg {
	nearest := c.Legs[0]
	for _, leg := range c.Legs[1:] {
		if leg.Expiration.Before(nearest.Expiration) {
			nearest = leg
		}
	}
	return nearest
}

// ReferenceDelta returns the first leg's |delta|, the reference delta used
// for DTE x delta bucketing (C6).
func (c EntryCandidate) ReferenceDelta() float64 {
	if len(c.Legs) == 0 {
		return 0
	}
	return absFloat(c.Legs[0].EntryQuote.Delta)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
