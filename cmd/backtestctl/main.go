// backtestctl is a small CLI driver for running list-strategies, load-data,
// evaluate and backtest calls against the engine locally, without standing
// up backtestd.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/optopsy/backtest-engine/internal/config"
	"github.com/optopsy/backtest-engine/internal/core"
	"github.com/optopsy/backtest-engine/internal/engine"
	"github.com/optopsy/backtest-engine/internal/strategycatalog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list-strategies":
		runListStrategies(os.Args[2:])
	case "load-data":
		runLoadData(os.Args[2:])
	case "evaluate":
		runEvaluate(os.Args[2:])
	case "backtest":
		runBacktest(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: backtestctl <list-strategies|load-data|evaluate|backtest> [flags]")
}

func newEngine(configPath string) *core.Engine {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return core.New(cfg, strategycatalog.Default(), nil, logger)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshalling output: %v", err)
	}
	fmt.Println(string(out))
}

func runListStrategies(args []string) {
	fs := flag.NewFlagSet("list-strategies", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	_ = fs.Parse(args)

	eng := newEngine(*configPath)
	strategies, err := eng.ListStrategies(context.Background())
	if err != nil {
		log.Fatalf("listing strategies: %v", err)
	}
	printJSON(strategies)
}

func runLoadData(args []string) {
	fs := flag.NewFlagSet("load-data", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	symbol := fs.String("symbol", "", "symbol to load from the local cache")
	_ = fs.Parse(args)

	if *symbol == "" {
		log.Fatal("-symbol is required")
	}

	eng := newEngine(*configPath)
	summary, err := eng.LoadData(context.Background(), core.LoadDataRequest{Symbol: *symbol})
	if err != nil {
		log.Fatalf("loading data: %v", err)
	}
	printJSON(summary)
}

func runEvaluate(args []string) {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	symbol := fs.String("symbol", "", "symbol to load before evaluating")
	strategyName := fs.String("strategy", "", "catalogued strategy name")
	maxEntryDTE := fs.Int("max-entry-dte", 45, "maximum entry DTE")
	exitDTE := fs.Int("exit-dte", 0, "exit DTE")
	dteInterval := fs.Float64("dte-interval", 10, "DTE bucket width")
	deltaInterval := fs.Float64("delta-interval", 0.1, "delta bucket width")
	_ = fs.Parse(args)

	if *strategyName == "" {
		log.Fatal("-strategy is required")
	}

	eng := newEngine(*configPath)
	loadIfRequested(eng, *symbol)

	result, err := eng.Evaluate(context.Background(), core.EvaluateRequest{
		StrategyName:  *strategyName,
		MaxEntryDTE:   *maxEntryDTE,
		ExitDTE:       *exitDTE,
		DTEInterval:   *dteInterval,
		DeltaInterval: *deltaInterval,
	})
	if err != nil {
		log.Fatalf("evaluating: %v", err)
	}
	printJSON(result)
}

func runBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	symbol := fs.String("symbol", "", "symbol to load before backtesting")
	strategyName := fs.String("strategy", "", "catalogued strategy name")
	maxEntryDTE := fs.Int("max-entry-dte", 45, "maximum entry DTE")
	exitDTE := fs.Int("exit-dte", 0, "exit DTE")
	capital := fs.Float64("capital", 10000, "starting capital")
	quantity := fs.Int("quantity", 1, "contracts per leg per position")
	maxPositions := fs.Int("max-positions", 1, "maximum concurrent positions")
	selector := fs.String("selector", string(engine.SelectNearest), "entry selector: nearest|highest_premium|lowest_premium|first")
	_ = fs.Parse(args)

	if *strategyName == "" {
		log.Fatal("-strategy is required")
	}

	eng := newEngine(*configPath)
	loadIfRequested(eng, *symbol)

	result, err := eng.Backtest(context.Background(), core.BacktestRequest{
		EvaluateRequest: core.EvaluateRequest{
			StrategyName: *strategyName,
			MaxEntryDTE:  *maxEntryDTE,
			ExitDTE:      *exitDTE,
		},
		Capital:      *capital,
		Quantity:     *quantity,
		MaxPositions: *maxPositions,
		Selector:     engine.TradeSelector(*selector),
	})
	if err != nil {
		log.Fatalf("backtesting: %v", err)
	}
	printJSON(result)
}

func loadIfRequested(eng *core.Engine, symbol string) {
	if symbol == "" {
		return
	}
	if _, err := eng.LoadData(context.Background(), core.LoadDataRequest{Symbol: symbol}); err != nil {
		log.Fatalf("loading data for %q: %v", symbol, err)
	}
}
