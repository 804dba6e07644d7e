package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/strategy-backtest/internal/config"
	"github.com/quantlab/strategy-backtest/internal/signal"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// generateBars builds n daily bars for a symbol from a close-price
// function, with a 1% high/low band around the close.
func generateBars(symbol string, n int, price func(i int) float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := 0; i < n; i++ {
		p := price(i)
		bars[i] = types.Bar{
			Symbol:    symbol,
			Timestamp: testStart.AddDate(0, 0, i),
			Open:      p,
			High:      p * 1.01,
			Low:       p * 0.99,
			Close:     p,
			Volume:    10000,
		}
	}
	return bars
}

func generateRisingBars(symbol string, n int) []types.Bar {
	return generateBars(symbol, n, func(i int) float64 { return 100.0 * pow(1.02, i) })
}

func generateFallingBars(symbol string, n int) []types.Bar {
	return generateBars(symbol, n, func(i int) float64 { return 100.0 * pow(0.98, i) })
}

func generateVolatileBars(symbol string, n int) []types.Bar {
	return generateBars(symbol, n, func(i int) float64 {
		base := 100.0 + 0.2*float64(i)
		swing := 8.0 * float64(i%7-3) / 3.0
		return base + swing
	})
}

func pow(base float64, exp int) float64 {
	v := 1.0
	for i := 0; i < exp; i++ {
		v *= base
	}
	return v
}

func alwaysLong(raw float64) signal.Predictor {
	return signal.PredictorFunc(func([]float64) (float64, error) { return raw, nil })
}

func testConfig(symbols ...string) config.Config {
	cfg := config.Default()
	cfg.Symbols = symbols
	return cfg
}

func TestRun_NoData(t *testing.T) {
	engine := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper())

	_, err := engine.Run(context.Background(), map[string][]types.Bar{})
	assert.ErrorContains(t, err, "no historical data")
}

func TestRun_InvalidConfigFailsFast(t *testing.T) {
	cfg := testConfig("AAA")
	cfg.InitialCapital = -1
	engine := NewEngine(cfg, alwaysLong(0.04), signal.NewRegressionMapper())

	_, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateRisingBars("AAA", 50),
	})
	assert.ErrorContains(t, err, "initial capital")
}

func TestRun_CapitalConservation(t *testing.T) {
	cfg := testConfig("AAA", "BBB")
	engine := NewEngine(cfg, alwaysLong(0.04), signal.NewRegressionMapper())

	result, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateVolatileBars("AAA", 200),
		"BBB": generateRisingBars("BBB", 200),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	// finalCapital = initialCapital + sum(gross PnL) - sum(commissions),
	// exactly, including forced end-of-backtest closes.
	expected := cfg.InitialCapital
	for _, p := range result.Trades {
		expected += p.GrossPnL() - p.CommissionPaid
	}
	assert.InDelta(t, expected, result.FinalCapital, 1e-6)
}

func TestRun_Determinism(t *testing.T) {
	series := map[string][]types.Bar{
		"AAA": generateVolatileBars("AAA", 150),
		"BBB": generateFallingBars("BBB", 150),
		"CCC": generateRisingBars("CCC", 150),
	}
	cfg := testConfig("AAA", "BBB", "CCC")

	first, err := NewEngine(cfg, alwaysLong(0.04), signal.NewRegressionMapper()).Run(context.Background(), series)
	require.NoError(t, err)
	second, err := NewEngine(cfg, alwaysLong(0.04), signal.NewRegressionMapper()).Run(context.Background(), series)
	require.NoError(t, err)

	require.Equal(t, len(first.Trades), len(second.Trades))
	for i := range first.Trades {
		assert.Equal(t, *first.Trades[i], *second.Trades[i])
	}
	assert.Equal(t, first.EquityCurve, second.EquityCurve)
}

func TestRun_DrawdownMatchesRecompute(t *testing.T) {
	engine := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper())

	result, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateVolatileBars("AAA", 250),
	})
	require.NoError(t, err)

	assert.InDelta(t, RecomputeMaxDrawdown(result.EquityCurve), result.MaxDrawdown, 1e-12)
}

func TestRun_NoTradeBelowConfidenceFloor(t *testing.T) {
	// +0.02 maps to confidence 0.4, below the 0.6 floor: nothing trades.
	cfg := testConfig("AAA", "BBB")
	engine := NewEngine(cfg, alwaysLong(0.02), signal.NewRegressionMapper())

	result, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateRisingBars("AAA", 100),
		"BBB": generateVolatileBars("BBB", 100),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, cfg.InitialCapital, result.FinalCapital)
	assert.Zero(t, result.Metrics.SharpeRatio)
	assert.Zero(t, result.Metrics.TotalReturn)
}

func TestRun_AllLosingTrades(t *testing.T) {
	// Long signals into a steady decline: every trade stops out.
	engine := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper())

	result, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateFallingBars("AAA", 200),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	assert.Zero(t, result.Metrics.ProfitFactor)
	assert.Zero(t, result.Metrics.WinRate)
	assert.Greater(t, result.Metrics.MaxDrawdown, 0.0)
	assert.Less(t, result.FinalCapital, result.InitialCapital)
}

func TestRun_StopLossExits(t *testing.T) {
	engine := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper())

	result, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateFallingBars("AAA", 120),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	for _, p := range result.Trades {
		require.True(t, p.Closed)
		if p.ExitReason == ExitStopLoss {
			// Long stop fills below entry, slippage included.
			assert.Less(t, p.ExitPrice, p.EntryPrice)
			assert.Negative(t, p.RealizedPnL)
		}
	}
}

func TestRun_ShortSideProfitsInDecline(t *testing.T) {
	engine := NewEngine(testConfig("AAA"), alwaysLong(-0.04), signal.NewRegressionMapper())

	result, err := engine.Run(context.Background(), map[string][]types.Bar{
		"AAA": generateFallingBars("AAA", 250),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	wins := 0
	for _, p := range result.Trades {
		assert.Equal(t, types.Short, p.Direction)
		if p.RealizedPnL > 0 {
			wins++
		}
	}
	assert.Greater(t, wins, 0)
	assert.Greater(t, result.FinalCapital, result.InitialCapital)
}

func TestRun_PeriodicSignalScenario(t *testing.T) {
	// Two symbols over 30 warmup + 100 trading bars; the predictor fires
	// +0.03 on every 10th trading bar and 0 otherwise. Expect exactly
	// 100/10 = 10 long entries per symbol, each exiting via take-profit
	// on the monotonically rising path, and a final capital strictly
	// above the initial net of commissions.
	const warmup = 30
	const tradingBars = 100

	cfg := testConfig("AAA", "BBB")
	cfg.StartDate = testStart.AddDate(0, 0, warmup)

	calls := 0
	periodic := signal.PredictorFunc(func([]float64) (float64, error) {
		bar := calls / 2 // two symbols per timestep, lexicographic
		calls++
		if bar%10 == 0 {
			return 0.03, nil
		}
		return 0, nil
	})

	series := map[string][]types.Bar{
		"AAA": generateRisingBars("AAA", warmup+tradingBars),
		"BBB": generateRisingBars("BBB", warmup+tradingBars),
	}

	result, err := NewEngine(cfg, periodic, signal.NewRegressionMapper()).Run(context.Background(), series)
	require.NoError(t, err)

	perSymbol := map[string]int{}
	for _, p := range result.Trades {
		perSymbol[p.Symbol]++
		assert.Equal(t, types.Long, p.Direction)
		assert.Equal(t, ExitTakeProfit, p.ExitReason)
	}
	assert.Equal(t, tradingBars/10, perSymbol["AAA"])
	assert.Equal(t, tradingBars/10, perSymbol["BBB"])
	assert.Greater(t, result.FinalCapital, result.InitialCapital)
}

func TestRun_MaxOpenPositionsEnforced(t *testing.T) {
	cfg := testConfig("AAA", "BBB", "CCC")
	cfg.MaxOpenPositions = 2

	series := map[string][]types.Bar{
		"AAA": generateRisingBars("AAA", 100),
		"BBB": generateRisingBars("BBB", 100),
		"CCC": generateRisingBars("CCC", 100),
	}

	result, err := NewEngine(cfg, alwaysLong(0.04), signal.NewRegressionMapper()).Run(context.Background(), series)
	require.NoError(t, err)

	limited := false
	for _, d := range result.Diagnostics {
		if d.Kind == DiagPositionLimit {
			limited = true
		}
	}
	assert.True(t, limited, "expected position-limit rejections with 3 always-on symbols and a limit of 2")
}

func TestRun_DegenerateBarSkipped(t *testing.T) {
	bars := generateRisingBars("AAA", 120)
	bars[60].Close = 0 // bad data point must not abort the run

	result, err := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper()).Run(
		context.Background(), map[string][]types.Bar{"AAA": bars})
	require.NoError(t, err)

	found := false
	for _, d := range result.Diagnostics {
		if d.Kind == DiagDegenerateBar && d.Symbol == "AAA" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_GapsAreNotErrors(t *testing.T) {
	full := generateRisingBars("AAA", 150)
	sparse := generateRisingBars("BBB", 150)
	// Remove a block of BBB bars mid-series.
	sparse = append(sparse[:80:80], sparse[100:]...)

	cfg := testConfig("AAA", "BBB")
	cfg.MaxOpenPositions = 100

	result, err := NewEngine(cfg, alwaysLong(0.04), signal.NewRegressionMapper()).Run(
		context.Background(), map[string][]types.Bar{"AAA": full, "BBB": sparse})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Trades)

	// A missing bar means no quote for that symbol that day, so nothing
	// may open at the stale pre-gap close.
	gapStart := testStart.AddDate(0, 0, 80)
	gapEnd := testStart.AddDate(0, 0, 99)
	for _, p := range result.Trades {
		if p.Symbol != "BBB" {
			continue
		}
		inGap := !p.EntryTimestamp.Before(gapStart) && !p.EntryTimestamp.After(gapEnd)
		assert.Falsef(t, inGap, "BBB entry at %s falls inside the data gap", p.EntryTimestamp.Format("2006-01-02"))
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper()).Run(
		ctx, map[string][]types.Bar{"AAA": generateRisingBars("AAA", 100)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ForcedCloseAtEnd(t *testing.T) {
	// Flat prices: no stop or target ever triggers, so every opened
	// position must be force-closed at the end of the range.
	flat := generateBars("AAA", 100, func(int) float64 { return 100 })

	result, err := NewEngine(testConfig("AAA"), alwaysLong(0.04), signal.NewRegressionMapper()).Run(
		context.Background(), map[string][]types.Bar{"AAA": flat})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	last := result.Trades[len(result.Trades)-1]
	assert.Equal(t, ExitEndOfBacktest, last.ExitReason)
	assert.Equal(t, result.Period.End, last.ExitTimestamp)
}
