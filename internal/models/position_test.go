package models

import (
	"testing"
	"time"
)

func TestPositionDTE_UsesNearestLegExpiration(t *testing.T) {
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		legs []CandidateLeg
		want int
	}{
		{
			name: "single leg 10 days out",
			legs: []CandidateLeg{{Expiration: today.AddDate(0, 0, 10)}},
			want: 10,
		},
		{
			name: "multi-expiration uses the nearer leg",
			legs: []CandidateLeg{
				{Expiration: today.AddDate(0, 0, 30)},
				{Expiration: today.AddDate(0, 0, 7)},
			},
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Legs: tt.legs}
			if got := p.DTE(today); got != tt.want {
				t.Fatalf("DTE() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPositionDaysHeld(t *testing.T) {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Position{OpenDate: open}

	got := p.DaysHeld(open.AddDate(0, 0, 5))
	if got != 5 {
		t.Fatalf("DaysHeld() = %d, want 5", got)
	}
}

func TestPositionMinExpiration(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Position{
		Legs: []CandidateLeg{
			{Expiration: base.AddDate(0, 0, 20)},
			{Expiration: base.AddDate(0, 0, 5)},
			{Expiration: base.AddDate(0, 0, 15)},
		},
	}
	want := base.AddDate(0, 0, 5)
	if got := p.MinExpiration(); !got.Equal(want) {
		t.Fatalf("MinExpiration() = %v, want %v", got, want)
	}
}
