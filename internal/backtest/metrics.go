package backtest

import (
	"math"
	"sort"
)

// deviationEpsilon is the floor below which a return-series deviation is
// treated as zero. Constant-return curves leave round-off residue in the
// variance sum, and dividing by it turns a defined-zero ratio into ±1e16.
const deviationEpsilon = 1e-12

// PerformanceMetrics are the summary statistics of one completed run.
type PerformanceMetrics struct {
	TotalReturn      float64
	AnnualizedReturn float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	ProfitFactor  float64

	SharpeRatio  float64
	SortinoRatio float64
	CalmarRatio  float64

	MaxDrawdown    float64
	ValueAtRisk    float64
	ConditionalVaR float64

	LongestWinStreak  int
	LongestLossStreak int
}

// MetricOptions parameterize the risk-adjusted ratios.
type MetricOptions struct {
	// RiskFreeRate is annual; it is scaled down by AnnualizationFactor
	// to a per-period rate.
	RiskFreeRate float64

	// AnnualizationFactor is periods per year, 252 for daily bars.
	AnnualizationFactor float64

	// ConfidenceLevel for VaR/CVaR, e.g. 0.95.
	ConfidenceLevel float64
}

// ComputeMetrics is a pure function of the closed trades, the equity
// curve and the initial capital. It never mutates its inputs, so it can
// be re-run against a finished Result at any time.
func ComputeMetrics(trades []*Position, equity []EquityPoint, initialCapital float64, opts MetricOptions) PerformanceMetrics {
	if opts.AnnualizationFactor <= 0 {
		opts.AnnualizationFactor = 252
	}

	m := PerformanceMetrics{
		TotalTrades: len(trades),
		MaxDrawdown: RecomputeMaxDrawdown(equity),
	}

	finalEquity := initialCapital
	if len(equity) > 0 {
		finalEquity = equity[len(equity)-1].Equity
	}
	if initialCapital > 0 {
		m.TotalReturn = (finalEquity - initialCapital) / initialCapital
	}

	periods := len(equity) - 1
	if periods > 0 && 1+m.TotalReturn > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, opts.AnnualizationFactor/float64(periods)) - 1
	}

	m.fillTradeStats(trades)
	m.fillRatios(equity, opts)
	m.fillTailRisk(trades, opts.ConfidenceLevel)

	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
	}

	return m
}

func (m *PerformanceMetrics) fillTradeStats(trades []*Position) {
	grossProfit := 0.0
	grossLoss := 0.0
	winStreak, lossStreak := 0, 0

	for _, p := range trades {
		if p.RealizedPnL > 0 {
			m.WinningTrades++
			grossProfit += p.RealizedPnL
			winStreak++
			lossStreak = 0
		} else {
			m.LosingTrades++
			grossLoss += math.Abs(p.RealizedPnL)
			lossStreak++
			winStreak = 0
		}
		if winStreak > m.LongestWinStreak {
			m.LongestWinStreak = winStreak
		}
		if lossStreak > m.LongestLossStreak {
			m.LongestLossStreak = lossStreak
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}

	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	default:
		m.ProfitFactor = 0
	}
}

func (m *PerformanceMetrics) fillRatios(equity []EquityPoint, opts MetricOptions) {
	returns := periodReturns(equity)
	if len(returns) == 0 {
		return
	}

	riskFreePerPeriod := opts.RiskFreeRate / opts.AnnualizationFactor
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreePerPeriod
	}

	mean := meanOf(excess)
	sd := stdDevOf(excess, mean)
	if sd > deviationEpsilon {
		m.SharpeRatio = mean / sd * math.Sqrt(opts.AnnualizationFactor)
	}

	// Sortino: same numerator, deviation over negative excess returns
	// only. All-positive histories get 0 rather than +Inf so the value
	// stays comparable across runs.
	downside := 0.0
	downsideCount := 0
	for _, r := range excess {
		if r < 0 {
			downside += r * r
			downsideCount++
		}
	}
	if downsideCount > 0 {
		downsideDev := math.Sqrt(downside / float64(len(excess)))
		if downsideDev > deviationEpsilon {
			m.SortinoRatio = mean / downsideDev * math.Sqrt(opts.AnnualizationFactor)
		}
	}
}

// fillTailRisk computes historical VaR and CVaR over the per-trade
// return distribution.
func (m *PerformanceMetrics) fillTailRisk(trades []*Position, confidenceLevel float64) {
	if len(trades) == 0 {
		return
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.95
	}

	returns := make([]float64, 0, len(trades))
	for _, p := range trades {
		returns = append(returns, p.Return())
	}
	sort.Float64s(returns)

	idx := int(math.Floor((1 - confidenceLevel) * float64(len(returns))))
	if idx >= len(returns) {
		idx = len(returns) - 1
	}
	m.ValueAtRisk = returns[idx]

	tail := returns[:idx+1]
	m.ConditionalVaR = meanOf(tail)
}

// RecomputeMaxDrawdown makes an independent pass over a finished equity
// curve. The simulator tracks drawdown incrementally; this recompute is
// the consistency check for it.
func RecomputeMaxDrawdown(equity []EquityPoint) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			dd := (peak - point.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func periodReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1].Equity > 0 {
			returns = append(returns, (equity[i].Equity-equity[i-1].Equity)/equity[i-1].Equity)
		}
	}
	return returns
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}
