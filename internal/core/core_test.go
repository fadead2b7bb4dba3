package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/optopsy/backtest-engine/internal/config"
	"github.com/optopsy/backtest-engine/internal/engine"
	"github.com/optopsy/backtest-engine/internal/models"
)

const testChainCSV = `quote_date,expiration,strike,option_type,bid,ask,delta,symbol
2024-01-02,2024-02-02,100,put,0.90,1.10,-0.16,SPY
2024-01-02,2024-02-02,110,call,0.80,1.00,0.16,SPY
2024-02-02,2024-02-02,100,put,0.05,0.15,-0.01,SPY
2024-02-02,2024-02-02,110,call,0.05,0.15,0.01,SPY
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPY.csv"), []byte(testChainCSV), 0o600))

	cfg := &config.Config{Datasource: config.DatasourceConfig{LocalCacheDir: dir}}
	cfg.Normalize()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	e := New(cfg, nil, nil, logger)
	_, err := e.LoadData(context.Background(), LoadDataRequest{Symbol: "SPY"})
	require.NoError(t, err)
	return e
}

func TestLoadData_InstallsChain(t *testing.T) {
	e := newTestEngine(t)
	chain, err := e.currentChain()
	require.NoError(t, err)
	require.Equal(t, 4, chain.Len())
}

func TestLoadData_MissingSymbol(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.LoadData(context.Background(), LoadDataRequest{Symbol: "NOPE"})
	require.Error(t, err)
	require.IsType(t, &models.DataUnavailableError{}, err)
}

func TestListStrategies_ReturnsCatalogue(t *testing.T) {
	e := newTestEngine(t)
	strategies, err := e.ListStrategies(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, strategies)
}

func TestEvaluate_ShortStrangle(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Evaluate(context.Background(), EvaluateRequest{
		StrategyName:  "short_strangle",
		MaxEntryDTE:   45,
		ExitDTE:       0,
		DTEInterval:   10,
		DeltaInterval: 0.1,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Buckets, 1)
	require.NotNil(t, result.Best)
	require.Equal(t, 1, result.Best.Count)
}

func TestEvaluate_UnknownStrategy(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Evaluate(context.Background(), EvaluateRequest{
		StrategyName: "does_not_exist",
		MaxEntryDTE:  45,
		ExitDTE:      0,
		DTEInterval:  10, DeltaInterval: 0.1,
	})
	require.Error(t, err)
	require.IsType(t, &models.StrategyNotFoundError{}, err)
}

func TestEvaluate_NoCandidatesSurviveIsInsufficientData(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Evaluate(context.Background(), EvaluateRequest{
		StrategyName:  "short_strangle",
		MaxEntryDTE:   0, // only the 2024-02-02 rows are 0 DTE, and their |delta| 0.01 is outside the strangle's window; none qualify
		ExitDTE:       0,
		DTEInterval:   10,
		DeltaInterval: 0.1,
	})
	require.Error(t, err)
	require.IsType(t, &models.InsufficientDataError{}, err)
}

func TestEvaluate_InvalidRange(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Evaluate(context.Background(), EvaluateRequest{
		StrategyName: "short_strangle",
		MaxEntryDTE:  5,
		ExitDTE:      10,
	})
	require.Error(t, err)
	require.IsType(t, &models.ValidationError{}, err)
}

func TestBacktest_ShortStrangle(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Backtest(context.Background(), BacktestRequest{
		EvaluateRequest: EvaluateRequest{
			StrategyName: "short_strangle",
			MaxEntryDTE:  45,
			ExitDTE:      0,
		},
		Capital:      10000,
		Quantity:     1,
		Multiplier:   100,
		MaxPositions: 1,
		Selector:     engine.SelectFirst,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.LessOrEqual(t, len(result.Equity), maxEquityPoints)
}

func TestBacktest_RejectsZeroCapital(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Backtest(context.Background(), BacktestRequest{
		EvaluateRequest: EvaluateRequest{StrategyName: "short_strangle", MaxEntryDTE: 45, ExitDTE: 0},
		Capital:         0,
		Quantity:        1,
		MaxPositions:    1,
	})
	require.Error(t, err)
	require.IsType(t, &models.ValidationError{}, err)
}

func TestCompare_RanksStrategies(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Compare(context.Background(), CompareRequest{
		Entries: []CompareEntry{
			{StrategyName: "short_strangle", MaxEntryDTE: 45, ExitDTE: 0},
			{StrategyName: "straddle", MaxEntryDTE: 45, ExitDTE: 0},
		},
		Capital:      10000,
		Quantity:     1,
		Multiplier:   100,
		MaxPositions: 1,
		Selector:     engine.SelectFirst,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
}

func TestCompare_RequiresEntries(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Compare(context.Background(), CompareRequest{Capital: 1000, MaxPositions: 1})
	require.Error(t, err)
	require.IsType(t, &models.ValidationError{}, err)
}

func TestDownsample_KeepsBounds(t *testing.T) {
	points := make([]models.EquityPoint, 200)
	out := downsample(points, maxEquityPoints)
	require.Len(t, out, maxEquityPoints)

	small := make([]models.EquityPoint, 10)
	require.Len(t, downsample(small, maxEquityPoints), 10)
}
