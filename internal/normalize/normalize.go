// Package normalize implements the Chain Normaliser (C1): it unifies a raw,
// loosely-typed options table into the canonical models.OptionsChain schema
// every downstream component relies on.
package normalize

import (
	"strings"
	"time"

	"github.com/optopsy/backtest-engine/internal/models"
)

// timestampColumnPriority is the fixed precedence used when more than one
// recognised timestamp column spelling is present: quote_datetime wins,
// since it's already named the way the canonical schema wants it.
var timestampColumnPriority = []string{"quote_datetime", "quote_date", "data_date"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Chain converts raw into the canonical OptionsChain schema. It fails with a
// *models.SchemaError if no recognised timestamp column exists, if
// expiration is missing, or if a required numeric/string column is absent.
func Chain(raw models.RawTable) (*models.OptionsChain, error) {
	tsCol, tsName, err := findTimestampColumn(raw)
	if err != nil {
		return nil, err
	}

	expCol, ok := raw.Columns["expiration"]
	if !ok {
		return nil, models.NewSchemaError("missing required column %q", "expiration")
	}

	strikeCol, err := requireFloatColumn(raw, "strike")
	if err != nil {
		return nil, err
	}
	bidCol, err := requireFloatColumn(raw, "bid")
	if err != nil {
		return nil, err
	}
	askCol, err := requireFloatColumn(raw, "ask")
	if err != nil {
		return nil, err
	}
	deltaCol, err := requireFloatColumn(raw, "delta")
	if err != nil {
		return nil, err
	}
	optTypeCol, err := requireStringColumn(raw, "option_type")
	if err != nil {
		return nil, err
	}
	symbolCol, err := requireStringColumn(raw, "symbol")
	if err != nil {
		return nil, err
	}

	quoteDatetimes, err := toTimeColumn(tsCol, tsName)
	if err != nil {
		return nil, err
	}
	expirations, err := toTimeColumn(expCol, "expiration")
	if err != nil {
		return nil, err
	}

	n := raw.NumRows
	optionTypes := make([]models.OptionType, n)
	for i, s := range optTypeCol {
		ot, err := normalizeOptionType(s)
		if err != nil {
			return nil, err
		}
		optionTypes[i] = ot
	}

	return &models.OptionsChain{
		QuoteDatetime: quoteDatetimes,
		Expiration:    expirations,
		Strike:        strikeCol,
		OptionType:    optionTypes,
		Bid:           bidCol,
		Ask:           askCol,
		Delta:         deltaCol,
		Symbol:        symbolCol,
	}, nil
}

func findTimestampColumn(raw models.RawTable) (models.RawColumn, string, error) {
	for _, name := range timestampColumnPriority {
		if col, ok := raw.Columns[name]; ok {
			return col, name, nil
		}
	}
	return models.RawColumn{}, "", models.NewSchemaError(
		"no recognised timestamp column found (expected one of %v)", timestampColumnPriority)
}

func requireFloatColumn(raw models.RawTable, name string) ([]float64, error) {
	col, ok := raw.Columns[name]
	if !ok || col.Floats == nil {
		return nil, models.NewSchemaError("missing required numeric column %q", name)
	}
	return col.Floats, nil
}

func requireStringColumn(raw models.RawTable, name string) ([]string, error) {
	col, ok := raw.Columns[name]
	if !ok || col.Strings == nil {
		return nil, models.NewSchemaError("missing required column %q", name)
	}
	return col.Strings, nil
}

// toTimeColumn converts a RawColumn holding either native time.Time values
// or ISO-8601 strings into a slice of day-truncated, UTC timestamps.
func toTimeColumn(col models.RawColumn, name string) ([]time.Time, error) {
	if col.Times != nil {
		out := make([]time.Time, len(col.Times))
		for i, t := range col.Times {
			out[i] = t.UTC().Truncate(24 * time.Hour)
		}
		return out, nil
	}
	if col.Strings != nil {
		out := make([]time.Time, len(col.Strings))
		for i, s := range col.Strings {
			t, err := parseISO8601(s)
			if err != nil {
				return nil, models.NewSchemaError("column %q: %v", name, err)
			}
			out[i] = t.UTC().Truncate(24 * time.Hour)
		}
		return out, nil
	}
	return nil, models.NewSchemaError("column %q has no recognised type (expected date/datetime/string)", name)
}

func parseISO8601(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

func normalizeOptionType(s string) (models.OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return models.Call, nil
	case "put", "p":
		return models.Put, nil
	default:
		return "", models.NewSchemaError("unrecognised option_type value %q", s)
	}
}
