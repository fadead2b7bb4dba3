package models

import (
	"testing"
	"time"
)

func TestOptionsChainDTE(t *testing.T) {
	c := &OptionsChain{
		QuoteDatetime: []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Expiration:    []time.Time{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	if got := c.DTE(0); got != 30 {
		t.Fatalf("DTE(0) = %d, want 30", got)
	}
}

func TestOptionsChainTradingDays_DedupAndSorted(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &OptionsChain{
		QuoteDatetime: []time.Time{d1, d2, d1, d2},
	}
	days := c.TradingDays()
	if len(days) != 2 {
		t.Fatalf("expected 2 unique trading days, got %d", len(days))
	}
	if !days[0].Equal(d2) || !days[1].Equal(d1) {
		t.Fatalf("trading days not sorted ascending: %v", days)
	}
}

func TestDaysBetween_TruncatesIntraday(t *testing.T) {
	from := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 1 {
		t.Fatalf("DaysBetween() = %d, want 1", got)
	}
}
