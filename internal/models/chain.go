package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

// The two option types recognised throughout the engine.
const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionsChain is the canonical, column-oriented representation of a
// historical options chain produced by the Chain Normaliser (C1). Every
// slice has the same length; row i's fields are the i-th element of each
// slice. The chain is immutable once built: analytical components never
// mutate it, only read it, so a single instance may be shared across
// concurrent backtests per spec §5.
type OptionsChain struct {
	QuoteDatetime []time.Time
	Expiration    []time.Time
	Strike        []float64
	OptionType    []OptionType
	Bid           []float64
	Ask           []float64
	Delta         []float64
	Symbol        []string
}

// Len returns the number of rows in the chain.
func (c *OptionsChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.QuoteDatetime)
}

// ChainRow is a materialized view of a single OptionsChain row, used by
// components that reason about one contract-day at a time.
type ChainRow struct {
	QuoteDatetime time.Time
	Expiration    time.Time
	Strike        float64
	OptionType    OptionType
	Bid           float64
	Ask           float64
	Delta         float64
	Symbol        string
}

// Row materializes row i. Callers in hot loops should prefer iterating the
// slices directly; Row exists for call sites where a value type is clearer.
func (c *OptionsChain) Row(i int) ChainRow {
	return ChainRow{
		QuoteDatetime: c.QuoteDatetime[i],
		Expiration:    c.Expiration[i],
		Strike:        c.Strike[i],
		OptionType:    c.OptionType[i],
		Bid:           c.Bid[i],
		Ask:           c.Ask[i],
		Delta:         c.Delta[i],
		Symbol:        c.Symbol[i],
	}
}

// DTE returns days-to-expiration for row i as a whole number of days,
// per the GLOSSARY definition: expiration_date - quote_date.
func (c *OptionsChain) DTE(i int) int {
	return DaysBetween(c.QuoteDatetime[i], c.Expiration[i])
}

// DaysBetween returns the whole number of days between two timestamps,
// truncating to day granularity first so partial-day components (e.g. an
// intraday quote_datetime) don't bias the count.
func DaysBetween(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(f).Hours() / 24)
}

// TradingDays returns the sorted, de-duplicated set of quote_datetime values
// appearing in the chain.
func (c *OptionsChain) TradingDays() []time.Time {
	seen := make(map[int64]bool, c.Len())
	days := make([]time.Time, 0, c.Len())
	for _, d := range c.QuoteDatetime {
		key := d.UTC().Truncate(24 * time.Hour).Unix()
		if !seen[key] {
			seen[key] = true
			days = append(days, d.UTC().Truncate(24*time.Hour))
		}
	}
	sortTimes(days)
	return days
}

func sortTimes(t []time.Time) {
	for i := 1; i < len(t); i++ {
		for j := i; j > 0 && t[j].Before(t[j-1]); j-- {
			t[j], t[j-1] = t[j-1], t[j]
		}
	}
}

// ToRawTable re-exposes a normalized chain as a RawTable with native typed
// columns, so it can be fed back through the Chain Normaliser to verify
// idempotence: Chain(ToRawTable(Chain(x))) == Chain(x).
func (c *OptionsChain) ToRawTable() RawTable {
	optType := make([]string, c.Len())
	for i, ot := range c.OptionType {
		optType[i] = string(ot)
	}
	return RawTable{
		NumRows: c.Len(),
		Columns: map[string]RawColumn{
			"quote_datetime": {Times: c.QuoteDatetime},
			"expiration":     {Times: c.Expiration},
			"strike":         {Floats: c.Strike},
			"option_type":    {Strings: optType},
			"bid":            {Floats: c.Bid},
			"ask":            {Floats: c.Ask},
			"delta":          {Floats: c.Delta},
			"symbol":         {Strings: c.Symbol},
		},
	}
}

// RawColumn holds one column of an un-normalised input table in whichever
// native representation the source format produced. Exactly one of the
// three slices is populated; which one depends on the source column's type.
type RawColumn struct {
	Strings []string
	Times   []time.Time
	Floats  []float64
}

// Len reports the column's row count, regardless of which representation is
// populated.
func (c RawColumn) Len() int {
	switch {
	case c.Strings != nil:
		return len(c.Strings)
	case c.Times != nil:
		return len(c.Times)
	case c.Floats != nil:
		return len(c.Floats)
	default:
		return 0
	}
}

// RawTable is the un-normalised input to the Chain Normaliser (C1): a
// column-oriented table whose timestamp column may be spelled
// quote_date, data_date, or quote_datetime, and typed as a date, a
// datetime, or an ISO-8601 string.
type RawTable struct {
	Columns map[string]RawColumn
	NumRows int
}
