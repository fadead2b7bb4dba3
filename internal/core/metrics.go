package core

// Prometheus metrics for the tool-surface facade.
//
//   - backtest_engine_runs_total{operation,status}  - calls to Evaluate/Backtest/Compare/LoadData
//   - backtest_engine_run_duration_seconds{operation} - wall time per call
//   - backtest_engine_open_positions - open positions at the end of the last Backtest run
//
// Registered once in init() and served by cmd/backtestd's /metrics handler.

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_engine_runs_total",
			Help: "Tool-surface calls by operation and outcome.",
		},
		[]string{"operation", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_engine_run_duration_seconds",
			Help:    "Tool-surface call latency by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	openPositionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_engine_open_positions",
			Help: "Open positions remaining at the end of the most recent backtest run.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, openPositionsGauge)
}
