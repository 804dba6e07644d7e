package backtest

import "time"

// Period is the simulated date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// Result is the immutable output of one simulation run. The same base
// shape is produced by single backtests, walk-forward test windows and
// Monte Carlo baselines; mode-specific aggregates wrap it rather than
// replacing it.
type Result struct {
	Period         Period
	InitialCapital float64
	FinalCapital   float64

	// Trades holds every closed position in chronological close order.
	Trades []*Position

	EquityCurve []EquityPoint
	MaxDrawdown float64

	Metrics PerformanceMetrics

	Diagnostics []Diagnostic
}

// TradeReturns extracts the per-trade return series, the input to the
// Monte Carlo resampler and the VaR estimators.
func (r *Result) TradeReturns() []float64 {
	returns := make([]float64, 0, len(r.Trades))
	for _, p := range r.Trades {
		returns = append(returns, p.Return())
	}
	return returns
}
