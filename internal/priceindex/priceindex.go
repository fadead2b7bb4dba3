// Package priceindex implements the Price Index (C7): an O(1) lookup from
// (date, expiration, strike, option_type) to a quote snapshot, plus the
// sorted set of trading days, built in a single pass over a normalised
// chain.
package priceindex

import (
	"time"

	"github.com/optopsy/backtest-engine/internal/models"
)

// PriceTable is the Price Index: last-writer-wins on duplicate keys, with
// a sorted, de-duplicated list of trading days.
type PriceTable struct {
	quotes      map[models.PriceKey]models.QuoteSnapshot
	tradingDays []time.Time
}

// Build performs the single pass over chain described in spec §4.7.
func Build(chain *models.OptionsChain) *PriceTable {
	table := &PriceTable{
		quotes: make(map[models.PriceKey]models.QuoteSnapshot, chain.Len()),
	}
	for i := 0; i < chain.Len(); i++ {
		key := models.PriceKey{
			Date:       chain.QuoteDatetime[i],
			Expiration: chain.Expiration[i],
			Strike:     chain.Strike[i],
			OptionType: chain.OptionType[i],
		}.NormalizedKey()
		table.quotes[key] = models.QuoteSnapshot{
			Bid:   chain.Bid[i],
			Ask:   chain.Ask[i],
			Delta: chain.Delta[i],
		}
	}
	table.tradingDays = chain.TradingDays()
	return table
}

// Lookup returns the quote for key, and whether one exists.
func (t *PriceTable) Lookup(key models.PriceKey) (models.QuoteSnapshot, bool) {
	q, ok := t.quotes[key.NormalizedKey()]
	return q, ok
}

// TradingDays returns the sorted, de-duplicated trading days the table was
// built from.
func (t *PriceTable) TradingDays() []time.Time {
	return t.tradingDays
}

// Len reports the number of distinct (date, expiration, strike, option_type)
// keys held in the table.
func (t *PriceTable) Len() int {
	return len(t.quotes)
}
