package joiner

import (
	"testing"
	"time"

	"github.com/optopsy/backtest-engine/internal/models"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func row(qd, exp time.Time, strike float64, ot models.OptionType) models.MatchedRow {
	return models.MatchedRow{QuoteDatetime: qd, Expiration: exp, Strike: strike, OptionType: ot, Symbol: "SPY"}
}

func TestJoin_AscendingDropsOutOfOrderStrikes(t *testing.T) {
	exp := day(31)
	leg0 := []models.MatchedRow{row(day(1), exp, 100, models.Put), row(day(2), exp, 110, models.Put)}
	leg1 := []models.MatchedRow{row(day(1), exp, 95, models.Put), row(day(2), exp, 120, models.Put)}

	out := Join([][]models.MatchedRow{leg0, leg1}, models.Ascending, false)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving row (day 1 violates ascending), got %d", len(out))
	}
	if !out[0].QuoteDatetime.Equal(day(2)) {
		t.Fatalf("expected surviving row on day 2, got %v", out[0].QuoteDatetime)
	}
	if out[0].Legs[0].Strike >= out[0].Legs[1].Strike {
		t.Fatalf("strikes not strictly ascending: %v", out[0].Legs)
	}
}

func TestJoin_NoStrikeRule_KeepsAllMatched(t *testing.T) {
	exp := day(31)
	leg0 := []models.MatchedRow{row(day(1), exp, 110, models.Call)}
	leg1 := []models.MatchedRow{row(day(1), exp, 90, models.Put)}

	out := Join([][]models.MatchedRow{leg0, leg1}, models.NoStrikeRule, false)
	if len(out) != 1 {
		t.Fatalf("expected 1 joined row under NoStrikeRule, got %d", len(out))
	}
}

func TestJoin_MissingLegRow_DropsDay(t *testing.T) {
	exp := day(31)
	leg0 := []models.MatchedRow{row(day(1), exp, 100, models.Put), row(day(2), exp, 101, models.Put)}
	leg1 := []models.MatchedRow{row(day(1), exp, 95, models.Put)}

	out := Join([][]models.MatchedRow{leg0, leg1}, models.NoStrikeRule, false)
	if len(out) != 1 {
		t.Fatalf("expected only day 1 to join (leg1 missing day 2), got %d", len(out))
	}
}

func TestJoin_MultiExpiration_JoinsOnQuoteDatetimeOnly(t *testing.T) {
	exp1 := day(31)
	exp2 := day(45)
	leg0 := []models.MatchedRow{row(day(1), exp1, 100, models.Put)}
	leg1 := []models.MatchedRow{row(day(1), exp2, 100, models.Put)}

	out := Join([][]models.MatchedRow{leg0, leg1}, models.NoStrikeRule, true)
	if len(out) != 1 {
		t.Fatalf("expected 1 joined row across distinct expirations, got %d", len(out))
	}
	if out[0].Legs[0].Expiration.Equal(out[0].Legs[1].Expiration) {
		t.Fatalf("expected legs to retain distinct expirations")
	}
	if !out[0].MinExpiration().Equal(exp1) {
		t.Fatalf("expected MinExpiration to be the earlier leg expiration")
	}
}
