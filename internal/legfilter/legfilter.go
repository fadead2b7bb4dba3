// Package legfilter implements the Leg Filter (C2): per-leg option-type
// selection, DTE range filtering, valid-quote filtering, and closest-delta
// selection within each (quote_datetime, expiration) group.
package legfilter

import (
	"github.com/optopsy/backtest-engine/internal/models"
)

type groupKey struct {
	quoteDatetime int64
	expiration    int64
}

// FilterLeg is the pure function filter_leg(chain, leg, max_entry_dte,
// exit_dte) -> rows described in spec §4.2. It returns at most one row per
// (quote_datetime, expiration) group: the row whose |delta| falls within
// [leg.Delta.Min, leg.Delta.Max] and is closest to leg.Delta.Target. Ties
// prefer the smaller |delta - target|; exact ties prefer the lower strike.
func FilterLeg(chain *models.OptionsChain, leg models.LegDef, maxEntryDTE, exitDTE int) []models.ChainRow {
	best := make(map[groupKey]models.ChainRow)
	bestDiff := make(map[groupKey]float64)
	order := make([]groupKey, 0)

	for i := 0; i < chain.Len(); i++ {
		if chain.OptionType[i] != leg.OptionType {
			continue
		}
		dte := chain.DTE(i)
		if dte < exitDTE || dte > maxEntryDTE {
			continue
		}
		if chain.Bid[i] <= 0 || chain.Ask[i] <= 0 {
			continue
		}

		absDelta := absFloat(chain.Delta[i])
		if absDelta < leg.Delta.Min || absDelta > leg.Delta.Max {
			continue
		}
		diff := absFloat(absDelta - leg.Delta.Target)

		key := groupKey{
			quoteDatetime: chain.QuoteDatetime[i].Unix(),
			expiration:    chain.Expiration[i].Unix(),
		}
		row := chain.Row(i)

		existing, ok := best[key]
		if !ok {
			best[key] = row
			bestDiff[key] = diff
			order = append(order, key)
			continue
		}
		switch {
		case diff < bestDiff[key]:
			best[key] = row
			bestDiff[key] = diff
		case diff == bestDiff[key] && row.Strike < existing.Strike:
			best[key] = row
			bestDiff[key] = diff
		}
	}

	out := make([]models.ChainRow, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
