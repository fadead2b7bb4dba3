// Package candidates implements the Entry Candidate Builder (C8): it reuses
// the Leg Filter, Entry/Exit Matcher, and Leg Joiner to produce one
// EntryCandidate per surviving joined row, priced for display at the Mid
// reference.
package candidates

import (
	"sort"
	"time"

	"github.com/optopsy/backtest-engine/internal/joiner"
	"github.com/optopsy/backtest-engine/internal/legfilter"
	"github.com/optopsy/backtest-engine/internal/matcher"
	"github.com/optopsy/backtest-engine/internal/models"
	"github.com/optopsy/backtest-engine/internal/pricing"
)

var midModel = models.SlippageModel{Kind: models.SlippageMid}

// Build runs C2, C3, and C4 for every leg in strategy and emits one
// EntryCandidate per surviving joined row, sorted by entry date ascending
// (ties broken by net premium, for determinism).
func Build(chain *models.OptionsChain, strategy models.StrategyDef, maxEntryDTE, exitDTE int) []models.EntryCandidate {
	perLeg := make([][]models.MatchedRow, len(strategy.Legs))
	for i, leg := range strategy.Legs {
		filtered := legfilter.FilterLeg(chain, leg, maxEntryDTE, exitDTE)
		perLeg[i] = matcher.Match(chain, filtered, exitDTE)
	}

	joined := joiner.Join(perLeg, strategy.StrikeOrdering, strategy.IsMultiExpiration())

	out := make([]models.EntryCandidate, 0, len(joined))
	for _, row := range joined {
		legs := make([]models.CandidateLeg, len(row.Legs))
		var netPremium float64
		for i, mr := range row.Legs {
			legDef := strategy.Legs[i]
			fill := pricing.FillPrice(mr.EntryBid, mr.EntryAsk, legDef.Side, true, midModel)
			legs[i] = models.CandidateLeg{
				Strike:     mr.Strike,
				OptionType: mr.OptionType,
				Side:       legDef.Side,
				Qty:        legDef.Qty,
				Cycle:      legDef.Cycle,
				Expiration: mr.Expiration,
				EntryQuote: models.QuoteSnapshot{Bid: mr.EntryBid, Ask: mr.EntryAsk, Delta: mr.EntryDelta},
			}
			netPremium += pricing.LegCost(fill, legDef.Side, legDef.Qty, 100)
		}
		out = append(out, models.EntryCandidate{
			EntryDate:  row.QuoteDatetime,
			Legs:       legs,
			NetPremium: -netPremium, // net_premium: negative means net debit paid
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].NetPremium < out[j].NetPremium
	})
	return out
}

// ByDate buckets candidates by entry date (day granularity), the
// candidates_by_date view the event loop (C9) iterates.
func ByDate(all []models.EntryCandidate) map[int64][]models.EntryCandidate {
	out := make(map[int64][]models.EntryCandidate)
	for _, c := range all {
		key := c.EntryDate.UTC().Truncate(24 * time.Hour).Unix()
		out[key] = append(out[key], c)
	}
	return out
}
