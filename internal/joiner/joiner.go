// Package joiner implements the Leg Joiner & Strike-Order Rule (C4): it
// inner-joins each leg's matched rows on quote_datetime (and expiration,
// for single-expiration strategies), then enforces monotonic strike
// ordering across legs where the strategy requires it.
package joiner

import (
	"time"

	"github.com/optopsy/backtest-engine/internal/models"
)

// Join inner-joins perLeg (one matched-row slice per leg, in strategy leg
// order) and applies the strategy's strike-order rule. multiExpiration
// selects the join key: false joins on (quote_datetime, expiration), true
// joins on quote_datetime alone, letting Secondary-cycle legs retain their
// own expiration.
func Join(perLeg [][]models.MatchedRow, ordering models.StrikeOrdering, multiExpiration bool) []models.JoinedRow {
	if len(perLeg) == 0 {
		return nil
	}

	type key struct {
		quoteDatetime int64
		expiration    int64
	}
	keyOf := func(r models.MatchedRow) key {
		if multiExpiration {
			return key{quoteDatetime: r.QuoteDatetime.Unix()}
		}
		return key{quoteDatetime: r.QuoteDatetime.Unix(), expiration: r.Expiration.Unix()}
	}

	indices := make([]map[key]models.MatchedRow, len(perLeg))
	order := make([]key, 0, len(perLeg[0]))
	seen := make(map[key]bool)
	for i, rows := range perLeg {
		idx := make(map[key]models.MatchedRow, len(rows))
		for _, r := range rows {
			k := keyOf(r)
			if _, dup := idx[k]; dup {
				continue // deterministic: first-seen wins
			}
			idx[k] = r
			if i == 0 && !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		indices[i] = idx
	}

	out := make([]models.JoinedRow, 0, len(order))
	for _, k := range order {
		legs := make([]models.MatchedRow, 0, len(perLeg))
		complete := true
		for _, idx := range indices {
			r, ok := idx[k]
			if !ok {
				complete = false
				break
			}
			legs = append(legs, r)
		}
		if !complete {
			continue
		}
		if ordering == models.Ascending && !strictlyAscending(legs) {
			continue
		}
		out = append(out, models.JoinedRow{
			QuoteDatetime: time.Unix(k.quoteDatetime, 0).UTC(),
			Legs:          legs,
		})
	}
	return out
}

func strictlyAscending(legs []models.MatchedRow) bool {
	for i := 1; i < len(legs); i++ {
		if legs[i].Strike <= legs[i-1].Strike {
			return false
		}
	}
	return true
}
