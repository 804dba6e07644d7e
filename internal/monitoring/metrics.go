// Package monitoring exposes Prometheus metrics for simulation runs.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Total number of completed simulation runs",
		},
		[]string{"mode"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall-clock duration of simulation runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	barsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_bars_processed_total",
			Help: "Total number of bars consumed by the simulator",
		},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Total number of closed trades by exit reason",
		},
		[]string{"symbol", "exit_reason"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_trade_pnl",
			Help:    "Distribution of realized trade PnL",
			Buckets: prometheus.LinearBuckets(-5000, 1000, 11),
		},
		[]string{"symbol"},
	)

	finalEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backtest_final_equity",
			Help: "Final equity of the most recent run",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(barsProcessed)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(finalEquity)
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one completed simulation run.
func ObserveRun(mode string, duration time.Duration, equity float64) {
	runsTotal.WithLabelValues(mode).Inc()
	runDuration.WithLabelValues(mode).Observe(duration.Seconds())
	finalEquity.WithLabelValues(mode).Set(equity)
}

// AddBarsProcessed counts bars consumed by the simulation loop.
func AddBarsProcessed(n int) {
	barsProcessed.Add(float64(n))
}

// RecordTrade records one closed trade.
func RecordTrade(symbol, exitReason string, pnl float64) {
	tradesTotal.WithLabelValues(symbol, exitReason).Inc()
	tradePnL.WithLabelValues(symbol).Observe(pnl)
}
