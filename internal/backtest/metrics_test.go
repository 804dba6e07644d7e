package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func equityCurve(values ...float64) []EquityPoint {
	points := make([]EquityPoint, len(values))
	for i, v := range values {
		points[i] = EquityPoint{Timestamp: testStart.AddDate(0, 0, i), Equity: v}
	}
	return points
}

// closedTrade builds a finished unit position whose Return() equals
// pnl/100.
func closedTrade(pnl float64) *Position {
	return &Position{
		Symbol:      "AAA",
		EntryPrice:  100,
		Quantity:    1,
		Closed:      true,
		RealizedPnL: pnl,
	}
}

func defaultOpts() MetricOptions {
	return MetricOptions{RiskFreeRate: 0, AnnualizationFactor: 252, ConfidenceLevel: 0.95}
}

func TestRecomputeMaxDrawdown(t *testing.T) {
	// Peak 120 -> trough 90 is 25%; peak 130 -> trough 91 is 30%.
	curve := equityCurve(100, 120, 90, 110, 130, 91)
	assert.InDelta(t, 0.30, RecomputeMaxDrawdown(curve), 1e-12)
}

func TestRecomputeMaxDrawdown_Monotonic(t *testing.T) {
	assert.Zero(t, RecomputeMaxDrawdown(equityCurve(100, 105, 111, 120)))
	assert.Zero(t, RecomputeMaxDrawdown(nil))
}

func TestComputeMetrics_TotalReturn(t *testing.T) {
	m := ComputeMetrics(nil, equityCurve(100000, 101000, 112000), 100000, defaultOpts())
	assert.InDelta(t, 0.12, m.TotalReturn, 1e-12)
}

func TestComputeMetrics_SharpeHandComputed(t *testing.T) {
	// Period returns 2%, 1%, 3%: mean 0.02, population stddev
	// sqrt(2/3)*0.01. Sharpe = mean/sd * sqrt(252).
	curve := equityCurve(100, 102, 103.02, 106.1106)
	m := ComputeMetrics(nil, curve, 100, defaultOpts())

	sd := math.Sqrt(2.0/3.0) * 0.01
	assert.InDelta(t, 0.02/sd*math.Sqrt(252), m.SharpeRatio, 1e-9)
}

func TestComputeMetrics_SharpeZeroOnConstantReturns(t *testing.T) {
	// Identical period returns have zero variance; Sharpe is defined
	// as 0 rather than a division blowup.
	curve := equityCurve(100, 101, 102.01, 103.0301)
	m := ComputeMetrics(nil, curve, 100, defaultOpts())
	assert.Zero(t, m.SharpeRatio)
}

func TestComputeMetrics_SharpeZeroOnFlatEquity(t *testing.T) {
	// A long flat curve accumulates round-off residue in the variance
	// sum; the deviation floor must still report Sharpe as exactly 0.
	values := make([]float64, 300)
	for i := range values {
		values[i] = 100000
	}
	m := ComputeMetrics(nil, equityCurve(values...), 100000, defaultOpts())
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.SortinoRatio)
}

func TestComputeMetrics_SortinoZeroWithoutDownside(t *testing.T) {
	curve := equityCurve(100, 102, 104, 107)
	m := ComputeMetrics(nil, curve, 100, defaultOpts())
	assert.Zero(t, m.SortinoRatio)
}

func TestComputeMetrics_SortinoUsesDownsideOnly(t *testing.T) {
	curve := equityCurve(100, 110, 99, 108.9)
	m := ComputeMetrics(nil, curve, 100, defaultOpts())
	assert.NotZero(t, m.SortinoRatio)
	// Mean excess return here is positive, so Sortino must be too.
	assert.Greater(t, m.SortinoRatio, 0.0)
}

func TestComputeMetrics_ProfitFactor(t *testing.T) {
	trades := []*Position{closedTrade(10), closedTrade(30), closedTrade(-20)}
	m := ComputeMetrics(trades, nil, 100000, defaultOpts())

	assert.InDelta(t, 2.0, m.ProfitFactor, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-12)
	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
}

func TestComputeMetrics_ProfitFactorEdges(t *testing.T) {
	allWins := ComputeMetrics([]*Position{closedTrade(5), closedTrade(7)}, nil, 100000, defaultOpts())
	assert.True(t, math.IsInf(allWins.ProfitFactor, 1))

	none := ComputeMetrics(nil, nil, 100000, defaultOpts())
	assert.Zero(t, none.ProfitFactor)
	assert.Zero(t, none.WinRate)
}

func TestComputeMetrics_Streaks(t *testing.T) {
	pnls := []float64{5, 8, -2, 3, 4, 6, -1, -7}
	trades := make([]*Position, len(pnls))
	for i, pnl := range pnls {
		trades[i] = closedTrade(pnl)
	}
	m := ComputeMetrics(trades, nil, 100000, defaultOpts())

	assert.Equal(t, 3, m.LongestWinStreak)
	assert.Equal(t, 2, m.LongestLossStreak)
}

func TestComputeMetrics_TailRisk(t *testing.T) {
	// 20 trade returns of -10%..+9% in 1% steps. At 95% confidence the
	// cutoff index is floor(0.05*20)=1, so VaR is the second-worst
	// return and CVaR the mean of the two worst.
	trades := make([]*Position, 0, 20)
	for i := 0; i < 20; i++ {
		trades = append(trades, closedTrade(float64(i-10)))
	}
	m := ComputeMetrics(trades, nil, 100000, defaultOpts())

	assert.InDelta(t, -0.09, m.ValueAtRisk, 1e-12)
	assert.InDelta(t, -0.095, m.ConditionalVaR, 1e-12)
}

func TestComputeMetrics_Calmar(t *testing.T) {
	curve := equityCurve(100, 120, 90, 110)
	m := ComputeMetrics(nil, curve, 100, defaultOpts())

	assert.InDelta(t, 0.25, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, m.AnnualizedReturn/0.25, m.CalmarRatio, 1e-9)
}

func TestComputeMetrics_EmptyInputs(t *testing.T) {
	m := ComputeMetrics(nil, nil, 100000, defaultOpts())

	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.ValueAtRisk)
	assert.Zero(t, m.ConditionalVaR)
}
