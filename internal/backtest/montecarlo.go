package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/quantlab/strategy-backtest/internal/config"
	"github.com/quantlab/strategy-backtest/internal/monitoring"
)

// MetricDistribution summarizes one metric's empirical distribution
// across Monte Carlo trials.
type MetricDistribution struct {
	Mean   float64
	Median float64
	P5     float64
	P95    float64
}

// MonteCarloResult is the resampled outcome distribution of a backtest.
type MonteCarloResult struct {
	Trials            int
	SourceTrades      int
	Return            MetricDistribution
	Drawdown          MetricDistribution
	Sharpe            MetricDistribution
	ProbabilityOfLoss float64
}

// trialOutcome is one synthetic equity path's summary.
type trialOutcome struct {
	finalReturn float64
	maxDrawdown float64
	sharpe      float64
}

// RunMonteCarlo draws with replacement from the realized per-trade
// return series and replays each sample sequentially against a fresh
// initial capital. Trial t seeds its own generator with
// cfg.RandomSeed + t, so results are reproducible regardless of how the
// trials are scheduled across goroutines.
func RunMonteCarlo(ctx context.Context, source *Result, cfg config.Config) (*MonteCarloResult, error) {
	if cfg.MonteCarloTrials <= 0 {
		return nil, fmt.Errorf("montecarlo: trials must be positive, got %d", cfg.MonteCarloTrials)
	}
	returns := source.TradeReturns()
	if len(returns) == 0 {
		return nil, fmt.Errorf("montecarlo: source backtest produced no trades to resample")
	}

	started := time.Now()

	trials := cfg.MonteCarloTrials
	outcomes := make([]trialOutcome, trials)

	var wg sync.WaitGroup
	workers := clampWorkers(trials)
	chunk := (trials + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > trials {
			hi = trials
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for t := lo; t < hi; t++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				rng := rand.New(rand.NewSource(cfg.RandomSeed + int64(t)))
				outcomes[t] = runTrial(rng, returns, cfg.InitialCapital)
			}
		}(lo, hi)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finalReturns := make([]float64, trials)
	drawdowns := make([]float64, trials)
	sharpes := make([]float64, trials)
	losses := 0
	for i, o := range outcomes {
		finalReturns[i] = o.finalReturn
		drawdowns[i] = o.maxDrawdown
		sharpes[i] = o.sharpe
		if o.finalReturn < 0 {
			losses++
		}
	}

	result := &MonteCarloResult{
		Trials:            trials,
		SourceTrades:      len(returns),
		Return:            distributionOf(finalReturns),
		Drawdown:          distributionOf(drawdowns),
		Sharpe:            distributionOf(sharpes),
		ProbabilityOfLoss: float64(losses) / float64(trials),
	}

	monitoring.ObserveRun("monte_carlo", time.Since(started), 0)
	return result, nil
}

// runTrial resamples len(returns) trades with replacement and compounds
// them into a synthetic equity curve.
func runTrial(rng *rand.Rand, returns []float64, initialCapital float64) trialOutcome {
	equity := initialCapital
	peak := equity
	maxDD := 0.0

	sampled := make([]float64, len(returns))
	for i := range sampled {
		r := returns[rng.Intn(len(returns))]
		sampled[i] = r

		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	mean := meanOf(sampled)
	sd := stdDevOf(sampled, mean)
	sharpe := 0.0
	if sd > deviationEpsilon {
		sharpe = mean / sd * math.Sqrt(float64(len(sampled)))
	}

	return trialOutcome{
		finalReturn: equity/initialCapital - 1,
		maxDrawdown: maxDD,
		sharpe:      sharpe,
	}
}

func distributionOf(values []float64) MetricDistribution {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return MetricDistribution{
		Mean:   meanOf(sorted),
		Median: medianOf(sorted),
		P5:     percentileOf(sorted, 0.05),
		P95:    percentileOf(sorted, 0.95),
	}
}

// percentileOf reads the p-quantile from an already sorted slice using
// nearest-rank.
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func clampWorkers(trials int) int {
	workers := 8
	if trials < workers {
		workers = trials
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
