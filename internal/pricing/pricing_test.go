package pricing

import (
	"math"
	"testing"

	"github.com/optopsy/backtest-engine/internal/models"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFillPrice_Mid_SymmetricEntryAndExit(t *testing.T) {
	model := models.SlippageModel{Kind: models.SlippageMid}
	entry := FillPrice(1.00, 1.20, models.Short, true, model)
	exit := FillPrice(1.00, 1.20, models.Short, false, model)
	if !almostEqual(entry, 1.10) || !almostEqual(exit, 1.10) {
		t.Fatalf("expected both fills at mid 1.10, got entry=%.4f exit=%.4f", entry, exit)
	}
}

func TestFillPrice_Spread_LongPaysAsk_ShortReceivesBid(t *testing.T) {
	model := models.SlippageModel{Kind: models.SlippageSpread}
	if got := FillPrice(1.00, 1.20, models.Long, true, model); !almostEqual(got, 1.20) {
		t.Fatalf("long entry should fill at ask 1.20, got %.4f", got)
	}
	if got := FillPrice(1.00, 1.20, models.Short, true, model); !almostEqual(got, 1.00) {
		t.Fatalf("short entry should fill at bid 1.00, got %.4f", got)
	}
	if got := FillPrice(1.00, 1.20, models.Long, false, model); !almostEqual(got, 1.00) {
		t.Fatalf("long exit should fill at bid 1.00, got %.4f", got)
	}
	if got := FillPrice(1.00, 1.20, models.Short, false, model); !almostEqual(got, 1.20) {
		t.Fatalf("short exit should fill at ask 1.20, got %.4f", got)
	}
}

func TestFillPrice_Liquidity_PartialSpreadCapture(t *testing.T) {
	model := models.SlippageModel{Kind: models.SlippageLiquidity, FillRatio: 0.5}
	// mid=1.10, halfSpread=0.10, adj=0.05
	got := FillPrice(1.00, 1.20, models.Long, true, model)
	if !almostEqual(got, 1.15) {
		t.Fatalf("expected 1.15, got %.4f", got)
	}
}

func TestFillPrice_PerLeg_FixedAdjustment(t *testing.T) {
	model := models.SlippageModel{Kind: models.SlippagePerLeg, PerLegAmount: 0.02}
	got := FillPrice(1.00, 1.20, models.Short, true, model)
	if !almostEqual(got, 1.08) {
		t.Fatalf("expected mid(1.10) - 0.02 = 1.08 for short entry, got %.4f", got)
	}
}

func TestLegPnL_SignMatchesSideAndDirection(t *testing.T) {
	// Short call opened at 1.00, closed at 0.20: profit of 0.80 * 100.
	pnl := LegPnL(1.00, 0.20, models.Short, 1, 100)
	if !almostEqual(pnl, 80) {
		t.Fatalf("expected 80, got %.4f", pnl)
	}
}

func TestCommission_FloorsAtMinFee(t *testing.T) {
	schedule := &models.CommissionSchedule{BaseFee: 0, PerContract: 0.1, MinFee: 1.0}
	if got := Commission(schedule, 2); !almostEqual(got, 1.0) {
		t.Fatalf("expected min_fee floor of 1.0, got %.4f", got)
	}
	if got := Commission(schedule, 50); !almostEqual(got, 5.0) {
		t.Fatalf("expected 5.0, got %.4f", got)
	}
}

func TestCommission_NilScheduleIsZero(t *testing.T) {
	if got := Commission(nil, 10); got != 0 {
		t.Fatalf("expected 0 for nil schedule, got %.4f", got)
	}
}
