package legfilter

import (
	"testing"
	"time"

	"github.com/optopsy/backtest-engine/internal/models"
)

func mkChain(rows []models.ChainRow) *models.OptionsChain {
	c := &models.OptionsChain{}
	for _, r := range rows {
		c.QuoteDatetime = append(c.QuoteDatetime, r.QuoteDatetime)
		c.Expiration = append(c.Expiration, r.Expiration)
		c.Strike = append(c.Strike, r.Strike)
		c.OptionType = append(c.OptionType, r.OptionType)
		c.Bid = append(c.Bid, r.Bid)
		c.Ask = append(c.Ask, r.Ask)
		c.Delta = append(c.Delta, r.Delta)
		c.Symbol = append(c.Symbol, r.Symbol)
	}
	return c
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestFilterLeg_Soundness(t *testing.T) {
	leg := models.LegDef{
		OptionType: models.Put,
		Delta:      models.TargetRange{Target: 0.16, Min: 0.10, Max: 0.25},
	}
	chain := mkChain([]models.ChainRow{
		// wrong type
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 100, OptionType: models.Call, Bid: 1, Ask: 1.1, Delta: -0.16},
		// dte too short (exit_dte=5): dte = 3
		{QuoteDatetime: day(28), Expiration: day(31), Strike: 95, OptionType: models.Put, Bid: 1, Ask: 1.1, Delta: -0.16},
		// invalid quote (bid 0)
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 95, OptionType: models.Put, Bid: 0, Ask: 1.1, Delta: -0.16},
		// delta out of range
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 90, OptionType: models.Put, Bid: 1, Ask: 1.1, Delta: -0.01},
		// valid, closest to target
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 98, OptionType: models.Put, Bid: 1, Ask: 1.1, Delta: -0.16},
		// valid but farther from target (same group)
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 99, OptionType: models.Put, Bid: 1, Ask: 1.1, Delta: -0.22},
	})

	rows := FilterLeg(chain, leg, 45, 5)

	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 surviving row (one per group), got %d", len(rows))
	}
	r := rows[0]
	if r.Strike != 98 {
		t.Fatalf("expected closest-to-target strike 98, got %.0f", r.Strike)
	}
	absDelta := r.Delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	if absDelta < leg.Delta.Min || absDelta > leg.Delta.Max {
		t.Fatalf("surviving row violates delta range: %v", r)
	}
	dte := models.DaysBetween(r.QuoteDatetime, r.Expiration)
	if dte < 5 || dte > 45 {
		t.Fatalf("surviving row violates dte range: %d", dte)
	}
	if r.Bid <= 0 || r.Ask <= 0 {
		t.Fatalf("surviving row has non-positive bid/ask: %v", r)
	}
}

func TestFilterLeg_TieBreak_PrefersLowerStrike(t *testing.T) {
	leg := models.LegDef{
		OptionType: models.Call,
		Delta:      models.TargetRange{Target: 0.30, Min: 0.10, Max: 0.50},
	}
	chain := mkChain([]models.ChainRow{
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 110, OptionType: models.Call, Bid: 1, Ask: 1.1, Delta: 0.32},
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 105, OptionType: models.Call, Bid: 1, Ask: 1.1, Delta: 0.28},
	})

	rows := FilterLeg(chain, leg, 45, 0)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Strike != 105 {
		t.Fatalf("expected tie-break to prefer lower strike 105, got %.0f", rows[0].Strike)
	}
}

func TestFilterLeg_NoQualifyingRow_DropsGroup(t *testing.T) {
	leg := models.LegDef{
		OptionType: models.Call,
		Delta:      models.TargetRange{Target: 0.30, Min: 0.10, Max: 0.50},
	}
	chain := mkChain([]models.ChainRow{
		{QuoteDatetime: day(1), Expiration: day(31), Strike: 110, OptionType: models.Call, Bid: 1, Ask: 1.1, Delta: 0.05},
	})
	rows := FilterLeg(chain, leg, 45, 0)
	if len(rows) != 0 {
		t.Fatalf("expected no surviving rows, got %d", len(rows))
	}
}
