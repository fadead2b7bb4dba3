// Package matcher implements the Entry/Exit Matcher (C3): for each surviving
// entry row it locates the same contract's row closest to
// expiration - exit_dte, without exceeding expiration.
package matcher

import (
	"time"

	"github.com/optopsy/backtest-engine/internal/models"
)

type contractKey struct {
	expiration int64
	strike     float64
	optionType models.OptionType
	symbol     string
}

// Match pairs each entry row against the unfiltered chain and returns one
// models.MatchedRow per entry row that has a qualifying exit row. Entries
// with no qualifying exit row are discarded per spec.
func Match(chain *models.OptionsChain, entries []models.ChainRow, exitDTE int) []models.MatchedRow {
	byContract := indexByContract(chain)

	out := make([]models.MatchedRow, 0, len(entries))
	for _, entry := range entries {
		key := contractKey{
			expiration: entry.Expiration.Unix(),
			strike:     entry.Strike,
			optionType: entry.OptionType,
			symbol:     entry.Symbol,
		}
		candidates, ok := byContract[key]
		if !ok {
			continue
		}

		target := entry.Expiration.AddDate(0, 0, -exitDTE)
		exit, found := closestRow(candidates, entry.Expiration, target)
		if !found {
			continue
		}

		out = append(out, models.MatchedRow{
			QuoteDatetime:     entry.QuoteDatetime,
			Expiration:        entry.Expiration,
			Strike:            entry.Strike,
			OptionType:        entry.OptionType,
			Symbol:            entry.Symbol,
			EntryBid:          entry.Bid,
			EntryAsk:          entry.Ask,
			EntryDelta:        entry.Delta,
			ExitQuoteDatetime: exit.QuoteDatetime,
			ExitBid:           exit.Bid,
			ExitAsk:           exit.Ask,
		})
	}
	return out
}

func indexByContract(chain *models.OptionsChain) map[contractKey][]models.ChainRow {
	idx := make(map[contractKey][]models.ChainRow)
	for i := 0; i < chain.Len(); i++ {
		key := contractKey{
			expiration: chain.Expiration[i].Unix(),
			strike:     chain.Strike[i],
			optionType: chain.OptionType[i],
			symbol:     chain.Symbol[i],
		}
		idx[key] = append(idx[key], chain.Row(i))
	}
	return idx
}

// closestRow finds, among rows not exceeding expiration, the one whose
// QuoteDatetime is closest to target. Ties prefer the earlier quote_datetime.
func closestRow(rows []models.ChainRow, expiration, target time.Time) (models.ChainRow, bool) {
	var best models.ChainRow
	var bestDiff time.Duration
	found := false

	for _, r := range rows {
		if r.QuoteDatetime.After(expiration) {
			continue
		}
		diff := absDuration(r.QuoteDatetime.Sub(target))
		if !found || diff < bestDiff || (diff == bestDiff && r.QuoteDatetime.Before(best.QuoteDatetime)) {
			best = r
			bestDiff = diff
			found = true
		}
	}
	return best, found
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
