// Package aggregator implements the Statistical Aggregator (C6): it bins
// joined, priced trade rows into DTE x delta buckets and computes per-bucket
// summary statistics.
package aggregator

import (
	"math"
	"sort"

	"github.com/optopsy/backtest-engine/internal/models"
	"github.com/optopsy/backtest-engine/internal/pricing"
)

// PricedRow is one joined entry, reduced to the three fields the aggregator
// bins and summarizes on: entry DTE, the entry's reference delta (the
// first leg's |delta|), and the trade's total P&L across all legs.
type PricedRow struct {
	DTE            int
	ReferenceDelta float64
	PnL            float64
}

// BuildRows prices every joined row's legs under model (and the optional
// commission schedule) and reduces it to a PricedRow. legs gives each
// position in j.Legs its Side and Qty, in the same order the strategy's
// legs were joined in. This is the evaluate-path pricing pass: it does not
// run the event loop, it just totals each historical entry's theoretical
// P&L had it been opened and held to its matched exit.
func BuildRows(joined []models.JoinedRow, legs []models.LegDef, model models.SlippageModel, multiplier float64, commission *models.CommissionSchedule) []PricedRow {
	out := make([]PricedRow, 0, len(joined))
	for _, j := range joined {
		var total float64
		nContracts := 0
		for i, leg := range j.Legs {
			side := legs[i].Side
			qty := legs[i].Qty
			entryFill := pricing.FillPrice(leg.EntryBid, leg.EntryAsk, side, true, model)
			exitFill := pricing.FillPrice(leg.ExitBid, leg.ExitAsk, side, false, model)
			total += pricing.LegPnL(entryFill, exitFill, side, qty, multiplier)
			nContracts += qty
		}
		total -= 2 * pricing.Commission(commission, nContracts)

		out = append(out, PricedRow{
			DTE:            models.DaysBetween(j.QuoteDatetime, j.Legs[0].Expiration),
			ReferenceDelta: absFloat(j.Legs[0].EntryDelta),
			PnL:            total,
		})
	}
	return out
}

// Summarize bins rows into DTE x delta buckets and computes GroupStats for
// every non-empty bucket. DTE buckets are half-open intervals of width
// dteInterval starting at exitDTE; delta buckets are half-open intervals of
// width deltaInterval starting at 0. Output is sorted by (DTE bucket asc,
// delta bucket asc). best/worst/highestWinRate select, respectively, the
// bucket with the greatest mean P&L, the least mean P&L, and the greatest
// win rate; ties are broken by the larger bucket count.
func Summarize(rows []PricedRow, exitDTE int, dteInterval, deltaInterval float64) (buckets []models.GroupStats, best, worst, highestWinRate *models.GroupStats) {
	type groupKey struct {
		dteLo   float64
		deltaLo float64
	}
	groups := make(map[groupKey][]float64)
	order := make([]groupKey, 0)

	for _, r := range rows {
		dteLo := math.Floor(float64(r.DTE-exitDTE)/dteInterval)*dteInterval + float64(exitDTE)
		deltaLo := math.Floor(r.ReferenceDelta/deltaInterval) * deltaInterval
		key := groupKey{dteLo: dteLo, deltaLo: deltaLo}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r.PnL)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].dteLo != order[j].dteLo {
			return order[i].dteLo < order[j].dteLo
		}
		return order[i].deltaLo < order[j].deltaLo
	})

	buckets = make([]models.GroupStats, 0, len(order))
	for _, key := range order {
		pnls := groups[key]
		stats := summarizeBucket(pnls)
		stats.DTEBucket = models.Bucket{Lo: key.dteLo, Hi: key.dteLo + dteInterval}
		stats.DeltaBucket = models.Bucket{Lo: key.deltaLo, Hi: key.deltaLo + deltaInterval}
		buckets = append(buckets, stats)
	}

	best, worst, highestWinRate = pickReferences(buckets)
	return buckets, best, worst, highestWinRate
}

func summarizeBucket(pnls []float64) models.GroupStats {
	n := len(pnls)
	sorted := append([]float64(nil), pnls...)
	sort.Float64s(sorted)

	var sum, wins, losses, winSum, lossSum float64
	for _, p := range pnls {
		sum += p
		if p > 0 {
			wins++
			winSum += p
		} else if p < 0 {
			losses++
			lossSum += -p
		}
	}
	mean := sum / float64(n)

	var variance float64
	if n > 1 {
		for _, p := range pnls {
			d := p - mean
			variance += d * d
		}
		variance /= float64(n - 1)
	}
	std := math.Sqrt(variance)

	var profitFactor float64
	switch {
	case lossSum == 0 && winSum > 0:
		profitFactor = math.Inf(1)
	case lossSum == 0 && winSum == 0:
		profitFactor = 0
	default:
		profitFactor = winSum / lossSum
	}

	return models.GroupStats{
		Count:        n,
		Mean:         mean,
		Std:          std,
		Min:          sorted[0],
		Q25:          percentile(sorted, 0.25),
		Median:       percentile(sorted, 0.50),
		Q75:          percentile(sorted, 0.75),
		Max:          sorted[n-1],
		WinRate:      wins / float64(n),
		ProfitFactor: profitFactor,
	}
}

// percentile uses linear interpolation between closest ranks over an
// already-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func pickReferences(buckets []models.GroupStats) (best, worst, highestWinRate *models.GroupStats) {
	for i := range buckets {
		b := &buckets[i]
		if best == nil || b.Mean > best.Mean || (b.Mean == best.Mean && b.Count > best.Count) {
			best = b
		}
		if worst == nil || b.Mean < worst.Mean || (b.Mean == worst.Mean && b.Count > worst.Count) {
			worst = b
		}
		if highestWinRate == nil || b.WinRate > highestWinRate.WinRate || (b.WinRate == highestWinRate.WinRate && b.Count > highestWinRate.Count) {
			highestWinRate = b
		}
	}
	return best, worst, highestWinRate
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
