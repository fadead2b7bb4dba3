package models

import "time"

// MatchedRow pairs an entry-day quote with the same contract's exit-day
// quote, as produced by the Entry/Exit Matcher (C3).
type MatchedRow struct {
	QuoteDatetime time.Time // entry day
	Expiration    time.Time
	Strike        float64
	OptionType    OptionType
	Symbol        string

	EntryBid   float64
	EntryAsk   float64
	EntryDelta float64

	ExitQuoteDatetime time.Time
	ExitBid           float64
	ExitAsk           float64
}
