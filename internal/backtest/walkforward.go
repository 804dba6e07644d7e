package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/quantlab/strategy-backtest/internal/config"
	"github.com/quantlab/strategy-backtest/internal/monitoring"
	"github.com/quantlab/strategy-backtest/internal/risk"
	"github.com/quantlab/strategy-backtest/internal/signal"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

// Window is one train/test pair of bar-index ranges on the shared
// timeline. Ranges are half-open: [TrainStart, TrainEnd) and
// [TestStart, TestEnd), with TestStart == TrainEnd.
type Window struct {
	TrainStart int
	TrainEnd   int
	TestStart  int
	TestEnd    int
}

// GenerateWindows slides a trainSize/testSize pair across n bars by
// step, producing floor((n-trainSize-testSize)/step)+1 windows with
// chronological, non-overlapping test ranges.
func GenerateWindows(n, trainSize, testSize, step int) []Window {
	if trainSize <= 0 || testSize <= 0 || step <= 0 || n < trainSize+testSize {
		return nil
	}

	count := (n-trainSize-testSize)/step + 1
	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := i * step
		windows = append(windows, Window{
			TrainStart: start,
			TrainEnd:   start + trainSize,
			TestStart:  start + trainSize,
			TestEnd:    start + trainSize + testSize,
		})
	}
	return windows
}

// ParamRange declares the grid values for one tunable parameter.
type ParamRange struct {
	Name   string
	Values []float64
}

// ParamSet is one point of the parameter grid.
type ParamSet map[string]float64

// Apply writes the parameter set onto a config copy. Unknown parameter
// names are configuration errors surfaced before any simulation starts.
func (ps ParamSet) Apply(cfg config.Config) (config.Config, error) {
	for _, name := range ps.sortedNames() {
		value := ps[name]
		switch name {
		case "stop_loss_fraction":
			cfg.StopLossFraction = value
		case "take_profit_fraction":
			cfg.TakeProfitFraction = value
		case "position_fraction":
			cfg.PositionFraction = value
		case "confidence_floor":
			cfg.ConfidenceFloor = value
		case "max_open_positions":
			cfg.MaxOpenPositions = int(value)
		default:
			return cfg, fmt.Errorf("walkforward: unknown parameter %q", name)
		}
	}
	return cfg, nil
}

func (ps ParamSet) sortedNames() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the set in a stable order for reports and tie-breaks.
func (ps ParamSet) String() string {
	parts := make([]string, 0, len(ps))
	for _, name := range ps.sortedNames() {
		parts = append(parts, fmt.Sprintf("%s=%v", name, ps[name]))
	}
	return strings.Join(parts, " ")
}

// expandGrid builds the cartesian product of the declared ranges in a
// deterministic order: ranges as declared, values left to right.
func expandGrid(ranges []ParamRange) []ParamSet {
	sets := []ParamSet{{}}
	for _, r := range ranges {
		if len(r.Values) == 0 {
			continue
		}
		next := make([]ParamSet, 0, len(sets)*len(r.Values))
		for _, base := range sets {
			for _, v := range r.Values {
				ps := make(ParamSet, len(base)+1)
				for k, val := range base {
					ps[k] = val
				}
				ps[r.Name] = v
				next = append(next, ps)
			}
		}
		sets = next
	}
	return sets
}

// Objective extracts the optimization target from computed metrics.
type Objective func(PerformanceMetrics) float64

// SharpeObjective is the default optimization target.
func SharpeObjective(m PerformanceMetrics) float64 { return m.SharpeRatio }

// WindowResult is the outcome of one walk-forward window. A window whose
// simulation failed carries Err and is excluded from the aggregate;
// partial results are still useful.
type WindowResult struct {
	Window     Window
	BestParams ParamSet
	TrainScore float64
	Test       *Result
	Err        error
}

// WalkForwardAggregate summarizes the out-of-sample windows.
type WalkForwardAggregate struct {
	Windows       int
	FailedWindows int

	MeanReturn   float64
	MedianReturn float64
	BestReturn   float64
	WorstReturn  float64

	MeanSharpe   float64
	MedianSharpe float64
	BestSharpe   float64
	WorstSharpe  float64

	// ConsistencyScore is 1 - stddev(returns)/|mean(returns)|, clamped
	// at 0; higher means the windows agree with each other.
	ConsistencyScore float64
}

// WalkForwardResult is the full output of one optimization run.
type WalkForwardResult struct {
	Windows   []WindowResult
	Aggregate WalkForwardAggregate
}

// WalkForwardOptimizer re-optimizes strategy parameters on each training
// window via grid search and evaluates out-of-sample on the adjacent
// testing window.
type WalkForwardOptimizer struct {
	cfg       config.Config
	predictor signal.Predictor
	mapper    signal.Mapper
	sizer     risk.Sizer
	ranges    []ParamRange
	objective Objective
	workers   int
}

// NewWalkForwardOptimizer builds an optimizer over the declared
// parameter ranges. workers <= 0 sizes the grid-search pool to the host.
func NewWalkForwardOptimizer(cfg config.Config, predictor signal.Predictor, mapper signal.Mapper, ranges []ParamRange, workers int) *WalkForwardOptimizer {
	return &WalkForwardOptimizer{
		cfg:       cfg,
		predictor: predictor,
		mapper:    mapper,
		ranges:    ranges,
		objective: SharpeObjective,
		workers:   workers,
	}
}

// SetObjective replaces the default Sharpe objective.
func (o *WalkForwardOptimizer) SetObjective(obj Objective) { o.objective = obj }

// SetSizer overrides the position-sizing policy for every evaluation.
func (o *WalkForwardOptimizer) SetSizer(s risk.Sizer) { o.sizer = s }

// Run slides the window pair across the full range. Windows are
// processed in order; the grid search inside each window runs on the
// worker pool since every parameter combination is an independent
// simulator instance.
func (o *WalkForwardOptimizer) Run(ctx context.Context, series map[string][]types.Bar) (*WalkForwardResult, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	universe := make(map[string][]types.Bar, len(o.cfg.Symbols))
	for _, symbol := range o.cfg.Symbols {
		if bars, ok := series[symbol]; ok {
			universe[symbol] = bars
		}
	}
	timeline := buildTimeline(universe)

	windows := GenerateWindows(len(timeline), o.cfg.TrainingWindow, o.cfg.TestingWindow, o.cfg.StepSize)
	if len(windows) == 0 {
		return nil, fmt.Errorf("walkforward: %d bars cannot fit train=%d test=%d",
			len(timeline), o.cfg.TrainingWindow, o.cfg.TestingWindow)
	}

	grid := expandGrid(o.ranges)

	out := &WalkForwardResult{Windows: make([]WindowResult, 0, len(windows))}
	for _, window := range windows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		wr := o.evaluateWindow(ctx, window, timeline, universe, grid)
		out.Windows = append(out.Windows, wr)
	}

	out.Aggregate = aggregateWindows(out.Windows)
	monitoring.ObserveRun("walk_forward", time.Since(started), 0)
	return out, nil
}

// evaluateWindow grid-searches the training range and runs the winner on
// the testing range. A failure anywhere is isolated to this window.
func (o *WalkForwardOptimizer) evaluateWindow(ctx context.Context, window Window, timeline []time.Time, universe map[string][]types.Bar, grid []ParamSet) WindowResult {
	wr := WindowResult{Window: window}

	jobs := make([]simJob, 0, len(grid))
	for i, ps := range grid {
		cfg, err := ps.Apply(o.cfg)
		if err != nil {
			wr.Err = err
			return wr
		}
		cfg = o.windowConfig(cfg, timeline, window.TrainStart, window.TrainEnd)
		jobs = append(jobs, simJob{
			ID:        i,
			Cfg:       cfg,
			Series:    universe,
			Predictor: o.predictor,
			Mapper:    o.mapper,
			Sizer:     o.sizer,
		})
	}

	results, err := runJobs(ctx, o.workers, jobs)
	if err != nil {
		wr.Err = err
		return wr
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, res := range results {
		if res.Err != nil || res.Result == nil {
			continue
		}
		score := o.objective(res.Result.Metrics)
		// Strict greater-than keeps the earliest grid point on ties,
		// which makes the selection reproducible.
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		wr.Err = fmt.Errorf("walkforward: no parameter combination produced a usable training result")
		return wr
	}

	wr.BestParams = grid[bestIdx]
	wr.TrainScore = bestScore

	testCfg, err := wr.BestParams.Apply(o.cfg)
	if err != nil {
		wr.Err = err
		return wr
	}
	testCfg = o.windowConfig(testCfg, timeline, window.TestStart, window.TestEnd)

	engineOpts := []Option{}
	if o.sizer != nil {
		engineOpts = append(engineOpts, WithSizer(o.sizer))
	}
	test, err := NewEngine(testCfg, o.predictor, o.mapper, engineOpts...).Run(ctx, universe)
	if err != nil {
		wr.Err = fmt.Errorf("walkforward: out-of-sample run: %w", err)
		return wr
	}
	wr.Test = test
	return wr
}

// windowConfig confines trading to the timeline range [start, end) while
// leaving earlier bars available as signal warmup history.
func (o *WalkForwardOptimizer) windowConfig(cfg config.Config, timeline []time.Time, start, end int) config.Config {
	cfg.StartDate = timeline[start]
	cfg.EndDate = timeline[end-1]
	return cfg
}

func aggregateWindows(windows []WindowResult) WalkForwardAggregate {
	agg := WalkForwardAggregate{Windows: len(windows)}

	var returns, sharpes []float64
	for _, wr := range windows {
		if wr.Err != nil || wr.Test == nil {
			agg.FailedWindows++
			continue
		}
		returns = append(returns, wr.Test.Metrics.TotalReturn)
		sharpes = append(sharpes, wr.Test.Metrics.SharpeRatio)
	}
	if len(returns) == 0 {
		return agg
	}

	agg.MeanReturn = meanOf(returns)
	agg.MedianReturn = medianOf(returns)
	agg.BestReturn = maxOf(returns)
	agg.WorstReturn = minOf(returns)

	agg.MeanSharpe = meanOf(sharpes)
	agg.MedianSharpe = medianOf(sharpes)
	agg.BestSharpe = maxOf(sharpes)
	agg.WorstSharpe = minOf(sharpes)

	if agg.MeanReturn != 0 {
		score := 1 - stdDevOf(returns, agg.MeanReturn)/math.Abs(agg.MeanReturn)
		if score < 0 {
			score = 0
		}
		agg.ConsistencyScore = score
	}
	return agg
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}
