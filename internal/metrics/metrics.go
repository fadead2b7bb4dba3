// Package metrics implements Metrics (C10): Sharpe, Sortino, Calmar, CAGR,
// max drawdown, VaR 95%, and trade-log statistics derived from an equity
// curve and trade log.
package metrics

import (
	"math"
	"sort"

	"github.com/optopsy/backtest-engine/internal/models"
)

const tradingDaysPerYear = 252

// Compute derives the full PerformanceMetrics set from equity and trades,
// per spec §4.10.
func Compute(equity []models.EquityPoint, trades []models.TradeRecord) models.PerformanceMetrics {
	var m models.PerformanceMetrics
	returns := dailyReturns(equity)

	meanReturn, stdReturn := meanStd(returns)
	if stdReturn == 0 {
		m.Sharpe = 0
		m.Notes = append(m.Notes, "sharpe: zero return volatility, reported as 0")
	} else {
		m.Sharpe = (meanReturn / stdReturn) * math.Sqrt(tradingDaysPerYear)
	}

	downside := sortinoDenominator(returns)
	if downside == 0 {
		m.Sortino = 0
		m.Notes = append(m.Notes, "sortino: zero downside deviation, reported as 0")
	} else {
		m.Sortino = (meanReturn / downside) * math.Sqrt(tradingDaysPerYear)
	}

	m.MaxDrawdown = maxDrawdown(equity)
	m.CAGR = cagr(equity)

	if m.MaxDrawdown == 0 {
		m.Calmar = math.Inf(1)
		m.Notes = append(m.Notes, "calmar: zero max drawdown, reported as +Inf")
	} else {
		m.Calmar = m.CAGR / math.Abs(m.MaxDrawdown)
	}

	m.VaR95 = percentile(returns, 0.05)

	m.TotalTrades = len(trades)
	var winSum, lossSum float64
	var wins, losses int
	consecutiveLosses, maxConsecutiveLosses := 0, 0
	for _, t := range trades {
		m.TotalPnL += t.PnL
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
			consecutiveLosses = 0
		} else if t.PnL < 0 {
			losses++
			lossSum += -t.PnL
			consecutiveLosses++
			if consecutiveLosses > maxConsecutiveLosses {
				maxConsecutiveLosses = consecutiveLosses
			}
		} else {
			consecutiveLosses = 0
		}
	}
	m.WinningTrades = wins
	m.LosingTrades = losses
	m.MaxConsecutiveLosses = maxConsecutiveLosses

	if m.TotalTrades > 0 {
		m.WinRate = float64(wins) / float64(m.TotalTrades)
	}
	if wins > 0 {
		m.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = -lossSum / float64(losses)
	}

	switch {
	case lossSum == 0 && winSum > 0:
		m.ProfitFactor = math.Inf(1)
		m.Notes = append(m.Notes, "profit_factor: zero losses with positive wins, reported as +Inf")
	case lossSum == 0 && winSum == 0:
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = winSum / lossSum
	}

	m.Expectancy = m.WinRate*m.AvgWin + (1-m.WinRate)*m.AvgLoss
	return m
}

func dailyReturns(equity []models.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, equity[i].Equity/prev-1)
	}
	return returns
}

func meanStd(returns []float64) (mean, std float64) {
	n := len(returns)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	return mean, math.Sqrt(variance)
}

// sortinoDenominator is sqrt(mean(min(r,0)^2)), the downside deviation.
func sortinoDenominator(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sumSq float64
	for _, r := range returns {
		d := math.Min(r, 0)
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(returns)))
}

// maxDrawdown returns min_t(E_t / max_{s<=t} E_s - 1), a negative value (or
// 0 if equity never fell below its running peak).
func maxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Equity
	worst := 0.0
	for _, pt := range equity {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak == 0 {
			continue
		}
		dd := pt.Equity/peak - 1
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func cagr(equity []models.EquityPoint) float64 {
	n := len(equity)
	if n < 2 {
		return 0
	}
	start := equity[0].Equity
	end := equity[n-1].Equity
	if start <= 0 {
		return 0
	}
	years := float64(tradingDaysPerYear) / float64(n)
	return math.Pow(end/start, years) - 1
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	xs := append([]float64(nil), sorted...)
	sort.Float64s(xs)
	n := len(xs)
	if n == 1 {
		return xs[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return xs[lo]
	}
	frac := rank - float64(lo)
	return xs[lo] + frac*(xs[hi]-xs[lo])
}
