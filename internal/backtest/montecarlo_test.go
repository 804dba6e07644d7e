package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sourceResult builds a finished backtest with the given per-trade
// returns for resampling.
func sourceResult(returns ...float64) *Result {
	trades := make([]*Position, len(returns))
	for i, r := range returns {
		trades[i] = closedTrade(r * 100)
	}
	return &Result{
		InitialCapital: 100000,
		FinalCapital:   100000,
		Trades:         trades,
	}
}

func TestRunMonteCarlo_Reproducible(t *testing.T) {
	source := sourceResult(0.04, -0.02, 0.05, -0.03, 0.01, 0.02, -0.01, 0.03)
	cfg := testConfig("AAA")
	cfg.MonteCarloTrials = 500

	first, err := RunMonteCarlo(context.Background(), source, cfg)
	require.NoError(t, err)
	second, err := RunMonteCarlo(context.Background(), source, cfg)
	require.NoError(t, err)

	// Same seed, same distributions, however the trials were scheduled.
	assert.Equal(t, first, second)
}

func TestRunMonteCarlo_SeedChangesOutcome(t *testing.T) {
	source := sourceResult(0.04, -0.02, 0.05, -0.03, 0.01, 0.02, -0.01, 0.03)
	cfg := testConfig("AAA")
	cfg.MonteCarloTrials = 500

	base, err := RunMonteCarlo(context.Background(), source, cfg)
	require.NoError(t, err)

	cfg.RandomSeed = 1337
	other, err := RunMonteCarlo(context.Background(), source, cfg)
	require.NoError(t, err)

	assert.NotEqual(t, base.Return, other.Return)
}

func TestRunMonteCarlo_AllWinningTrades(t *testing.T) {
	source := sourceResult(0.02, 0.03, 0.01, 0.04)
	cfg := testConfig("AAA")
	cfg.MonteCarloTrials = 200

	result, err := RunMonteCarlo(context.Background(), source, cfg)
	require.NoError(t, err)

	// Every resample of positive returns compounds upward.
	assert.Zero(t, result.ProbabilityOfLoss)
	assert.Greater(t, result.Return.P5, 0.0)
	assert.Zero(t, result.Drawdown.P95)
	assert.Equal(t, 4, result.SourceTrades)
	assert.Equal(t, 200, result.Trials)
}

func TestRunMonteCarlo_DistributionShape(t *testing.T) {
	source := sourceResult(0.06, -0.04, 0.05, -0.05, 0.03, -0.02, 0.04, -0.03, 0.02, 0.01)
	cfg := testConfig("AAA")
	cfg.MonteCarloTrials = 2000

	result, err := RunMonteCarlo(context.Background(), source, cfg)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.Return.P5, result.Return.Median)
	assert.LessOrEqual(t, result.Return.Median, result.Return.P95)
	assert.GreaterOrEqual(t, result.Drawdown.P5, 0.0)
	assert.GreaterOrEqual(t, result.ProbabilityOfLoss, 0.0)
	assert.LessOrEqual(t, result.ProbabilityOfLoss, 1.0)
}

func TestRunMonteCarlo_PercentilesStabilizeWithTrials(t *testing.T) {
	source := sourceResult(0.06, -0.04, 0.05, -0.05, 0.03, -0.02, 0.04, -0.03, 0.02, 0.01)
	cfg := testConfig("AAA")

	width := func(trials int) float64 {
		cfg.MonteCarloTrials = trials
		result, err := RunMonteCarlo(context.Background(), source, cfg)
		require.NoError(t, err)
		return result.Return.P95 - result.Return.P5
	}

	// The interval estimate settles as trials grow; allow sampling
	// noise on the small run.
	small := width(100)
	large := width(10000)
	assert.Greater(t, small, 0.0)
	assert.Greater(t, large, 0.0)
	assert.InEpsilon(t, small, large, 0.5)
}

func TestRunMonteCarlo_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := sourceResult(0.04, -0.02, 0.05, -0.03)
	cfg := testConfig("AAA")
	cfg.MonteCarloTrials = 10000

	_, err := RunMonteCarlo(ctx, source, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMonteCarlo_Validation(t *testing.T) {
	cfg := testConfig("AAA")
	cfg.MonteCarloTrials = 0
	_, err := RunMonteCarlo(context.Background(), sourceResult(0.01), cfg)
	assert.ErrorContains(t, err, "trials must be positive")

	cfg.MonteCarloTrials = 100
	_, err = RunMonteCarlo(context.Background(), sourceResult(), cfg)
	assert.ErrorContains(t, err, "no trades")
}

func TestPercentileOf(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, 1.0, percentileOf(sorted, 0.05))
	assert.Equal(t, 5.0, percentileOf(sorted, 0.5))
	assert.Equal(t, 10.0, percentileOf(sorted, 0.95))
	assert.Zero(t, percentileOf(nil, 0.5))
}
