package matcher

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

func TestMatch_PicksClosestToExpirationMinusExitDTE(t *testing.T) {
	exp := day(31)
	chain := mkChain([]models.ChainRow{
		{QuoteDatetime: day(1), Expiration: exp, Strike: 100, OptionType: models.Call, Symbol: "SPY", Bid: 1, Ask: 1.1},
		// exit_dte=5 -> target = Jan 26. Day 25 is 1 away, Day 27 is 1 away; prefer earlier (25).
		{QuoteDatetime: day(25), Expiration: exp, Strike: 100, OptionType: models.Call, Symbol: "SPY", Bid: 0.5, Ask: 0.6},
		{QuoteDatetime: day(27), Expiration: exp, Strike: 100, OptionType: models.Call, Symbol: "SPY", Bid: 0.4, Ask: 0.5},
		{QuoteDatetime: day(31), Expiration: exp, Strike: 100, OptionType: models.Call, Symbol: "SPY", Bid: 0.0, Ask: 0.1},
	})
	entries := []models.ChainRow{
		{QuoteDatetime: day(1), Expiration: exp, Strike: 100, OptionType: models.Call, Symbol: "SPY", Bid: 1, Ask: 1.1, Delta: 0.3},
	}

	rows := Match(chain, entries, 5)
	if len(rows) != 1 {
		t.Fatalf("expected 1 matched row, got %d", len(rows))
	}
	if !rows[0].ExitQuoteDatetime.Equal(day(25)) {
		t.Fatalf("expected exit day 25 (earlier tie-break), got %v", rows[0].ExitQuoteDatetime)
	}
}

func TestMatch_NoQualifyingExit_DropsEntry(t *testing.T) {
	exp := day(31)
	chain := mkChain([]models.ChainRow{
		{QuoteDatetime: day(1), Expiration: exp, Strike: 100, OptionType: models.Call, Symbol: "SPY", Bid: 1, Ask: 1.1},
	})
	entries := []models.ChainRow{
		{QuoteDatetime: day(1), Expiration: exp, Strike: 105, OptionType: models.Call, Symbol: "SPY", Bid: 1, Ask: 1.1},
	}
	rows := Match(chain, entries, 5)
	if len(rows) != 0 {
		t.Fatalf("expected 0 matched rows for unmatched contract, got %d", len(rows))
	}
}

func TestMatch_ExcludesRowsAfterExpiration(t *testing.T) {
	exp := day(31)
	chain := mkChain([]models.ChainRow{
		{QuoteDatetime: day(1), Expiration: exp, Strike: 100, OptionType: models.Put, Symbol: "SPY", Bid: 1, Ask: 1.1},
		{QuoteDatetime: day(31), Expiration: exp, Strike: 100, OptionType: models.Put, Symbol: "SPY", Bid: 0.1, Ask: 0.2},
	})
	entries := []models.ChainRow{
		{QuoteDatetime: day(1), Expiration: exp, Strike: 100, OptionType: models.Put, Symbol: "SPY", Bid: 1, Ask: 1.1},
	}
	rows := Match(chain, entries, 0)
	if len(rows) != 1 {
		t.Fatalf("expected 1 matched row, got %d", len(rows))
	}
	if !rows[0].ExitQuoteDatetime.Equal(day(31)) {
		t.Fatalf("expected exit on expiration day itself, got %v", rows[0].ExitQuoteDatetime)
	}
}
