package models

import "time"

// QuoteSnapshot is a single contract's bid/ask/delta on a single day.
type QuoteSnapshot struct {
	Bid   float64
	Ask   float64
	Delta float64
}

// Mid returns the midpoint price (bid+ask)/2.
func (q QuoteSnapshot) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// PriceKey uniquely identifies one contract on one day: the lookup key for
// the Price Index (C7).
type PriceKey struct {
	Date       time.Time
	Expiration time.Time
	Strike     float64
	OptionType OptionType
}

// NormalizedKey returns a copy of k with Date and Expiration truncated to
// day granularity, so keys built from slightly different intraday
// timestamps still collide as intended.
func (k PriceKey) NormalizedKey() PriceKey {
	k.Date = k.Date.UTC().Truncate(24 * time.Hour)
	k.Expiration = k.Expiration.UTC().Truncate(24 * time.Hour)
	return k
}
