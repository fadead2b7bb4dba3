// Package datasource implements the data-retrieval layer's interface only,
// as spec.md places it out of scope: one concrete, minimal local-file-cache
// loader (grounded in the teacher's internal/storage atomic-write layer and
// the pack's CSV-producing tooling in chidi150c-coinbase/tools) plus a
// RemoteFetcher stand-in for the upstream-API download / remote
// object-store fetch the spec names as external collaborators.
package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/optopsy/backtest-engine/internal/models"
	"github.com/optopsy/backtest-engine/internal/normalize"
)

// timestampColumns are the column spellings the chain normaliser accepts
// as strings (ISO-8601 parsed downstream by normalize.Chain).
var timestampColumns = map[string]bool{
	"quote_datetime": true,
	"quote_date":     true,
	"data_date":      true,
}

var floatColumns = map[string]bool{
	"strike": true,
	"bid":    true,
	"ask":    true,
	"delta":  true,
}

var stringColumns = map[string]bool{
	"option_type": true,
	"symbol":      true,
	"expiration":  true,
}

// ChainSummary is returned by LoadData (§6): a description of the chain
// that was loaded, without shipping the whole table back to the caller.
type ChainSummary struct {
	Symbol    string
	RowCount  int
	StartDate string
	EndDate   string
	Columns   []string
}

// Loader is the local-file-cache collaborator: it reads a symbol's options
// chain from the configured cache directory.
type Loader struct {
	CacheDir string
}

// NewLoader builds a Loader rooted at cacheDir.
func NewLoader(cacheDir string) *Loader {
	return &Loader{CacheDir: cacheDir}
}

// Load reads `<CacheDir>/<symbol>.csv`, normalises it via C1, and returns
// both the canonical chain and its summary. A missing file surfaces as
// *models.DataUnavailableError.
func (l *Loader) Load(symbol string) (*models.OptionsChain, ChainSummary, error) {
	path := filepath.Join(l.CacheDir, symbol+".csv")
	f, err := os.Open(path) // #nosec G304 -- path is built from a configured cache dir + caller symbol
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ChainSummary{}, models.NewDataUnavailableError("no cached chain for symbol %q (expected %s)", symbol, path)
		}
		return nil, ChainSummary{}, fmt.Errorf("opening chain file %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	raw, columns, err := parseCSV(f)
	if err != nil {
		return nil, ChainSummary{}, err
	}

	chain, err := normalize.Chain(raw)
	if err != nil {
		return nil, ChainSummary{}, err
	}

	summary := ChainSummary{Symbol: symbol, RowCount: chain.Len(), Columns: columns}
	if chain.Len() > 0 {
		days := chain.TradingDays()
		summary.StartDate = days[0].Format("2006-01-02")
		summary.EndDate = days[len(days)-1].Format("2006-01-02")
	}
	return chain, summary, nil
}

// parseCSV reads a header-plus-rows CSV into a models.RawTable, routing
// each column to the typed representation C1 expects: known numeric
// columns as floats, everything else (including every recognised timestamp
// spelling) as strings for ISO-8601 parsing downstream.
func parseCSV(r io.Reader) (models.RawTable, []string, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return models.RawTable{}, nil, models.NewSchemaError("reading CSV header: %v", err)
	}

	rawRows := make([][]string, 0, 256)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.RawTable{}, nil, models.NewSchemaError("reading CSV row: %v", err)
		}
		rawRows = append(rawRows, row)
	}

	n := len(rawRows)
	columns := make(map[string]models.RawColumn, len(header))
	for colIdx, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case floatColumns[name]:
			vals := make([]float64, n)
			for i, row := range rawRows {
				v, err := strconv.ParseFloat(strings.TrimSpace(row[colIdx]), 64)
				if err != nil {
					return models.RawTable{}, nil, models.NewSchemaError("column %q row %d: %v", name, i, err)
				}
				vals[i] = v
			}
			columns[name] = models.RawColumn{Floats: vals}
		case stringColumns[name] || timestampColumns[name]:
			vals := make([]string, n)
			for i, row := range rawRows {
				vals[i] = strings.TrimSpace(row[colIdx])
			}
			columns[name] = models.RawColumn{Strings: vals}
		default:
			// Unrecognised columns (e.g. open_interest, volume) are carried
			// through as strings so callers can still see them in Columns,
			// but C1 never consults them.
			vals := make([]string, n)
			for i, row := range rawRows {
				vals[i] = strings.TrimSpace(row[colIdx])
			}
			columns[name] = models.RawColumn{Strings: vals}
		}
	}

	return models.RawTable{Columns: columns, NumRows: n}, header, nil
}

// RemoteFetcher is the interface-shaped stand-in for the upstream-API
// download / remote object-store fetch spec.md places out of scope. The
// only implementation shipped here (StubRemoteFetcher) always fails
// DataUnavailable; wiring a real HTTP/object-store client is explicitly
// out of scope.
type RemoteFetcher interface {
	Fetch(ctx context.Context, symbol, startDate, endDate string) (io.ReadCloser, error)
}

// StubRemoteFetcher implements RemoteFetcher by always reporting the data
// as unavailable remotely, forcing callers back to the local cache.
type StubRemoteFetcher struct{}

// Fetch always returns a DataUnavailableError.
func (StubRemoteFetcher) Fetch(_ context.Context, symbol, startDate, endDate string) (io.ReadCloser, error) {
	return nil, models.NewDataUnavailableError(
		"remote fetch not implemented for %q [%s, %s]; populate the local cache instead", symbol, startDate, endDate)
}
