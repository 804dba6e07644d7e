// Package backtest implements the execution simulator and the analysis
// passes (performance metrics, walk-forward optimization, Monte Carlo
// resampling) that wrap it.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/strategy-backtest/internal/config"
	"github.com/quantlab/strategy-backtest/internal/monitoring"
	"github.com/quantlab/strategy-backtest/internal/risk"
	"github.com/quantlab/strategy-backtest/internal/signal"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

// Engine replays historical bars through a predictor and simulates order
// execution with slippage and commission. One Engine value can run many
// times; every Run owns a fresh simulation state, so concurrent Runs of
// the same Engine are safe as long as the predictor is.
type Engine struct {
	cfg       config.Config
	generator *signal.Generator
	sizer     risk.Sizer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSizer overrides the default fixed-fraction position sizing policy.
func WithSizer(s risk.Sizer) Option {
	return func(e *Engine) { e.sizer = s }
}

// NewEngine builds an engine for the given configuration, predictor and
// signal mapping. The configuration must already be validated.
func NewEngine(cfg config.Config, predictor signal.Predictor, mapper signal.Mapper, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		generator: signal.NewGenerator(predictor, mapper, cfg.MinHistory, cfg.ConfidenceFloor),
		sizer:     risk.NewFixedFraction(cfg.PositionFraction),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run simulates the configured symbols over the given per-symbol bar
// series. Bars before the configured start date are consumed as signal
// warmup history only; trading is confined to [StartDate, EndDate].
// Cancellation is checked once per processed timestep.
func (e *Engine) Run(ctx context.Context, series map[string][]types.Bar) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	universe := make(map[string][]types.Bar, len(e.cfg.Symbols))
	for _, symbol := range e.cfg.Symbols {
		if bars, ok := series[symbol]; ok {
			universe[symbol] = bars
		}
	}

	timeline := buildTimeline(universe)
	if len(timeline) == 0 {
		return nil, fmt.Errorf("backtest: no historical data for symbols %v", e.cfg.Symbols)
	}

	state := newSimulationState(e.cfg.InitialCapital)
	history := make(map[string][]types.Bar, len(universe))
	cursor := make(map[string]int, len(universe))

	var tradingStarted, tradingEnded time.Time

	for _, ts := range timeline {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !e.cfg.EndDate.IsZero() && ts.After(e.cfg.EndDate) {
			break
		}

		// Collect this timestep's bars in lexicographic symbol order.
		current := e.advance(state, universe, cursor, history, ts)

		warmup := !e.cfg.StartDate.IsZero() && ts.Before(e.cfg.StartDate)
		if warmup {
			continue
		}

		// 1. Stops and targets on existing positions.
		e.sweepPositions(state, current, ts)

		// 2+3. New signals, admission.
		signals, notes := e.generator.Generate(history, ts)
		for _, note := range notes {
			state.record(ts, "", DiagSignalSkipped, note)
		}
		for _, sig := range signals {
			e.admit(state, sig, ts)
		}

		// 4. Equity snapshot.
		state.snapshotEquity(ts)
		monitoring.AddBarsProcessed(len(current))

		if tradingStarted.IsZero() {
			tradingStarted = ts
		}
		tradingEnded = ts
	}

	// Force-close leftovers and take a settlement snapshot so the curve
	// ends at the realized account value, exit commissions included.
	if len(state.openPositions) > 0 {
		e.closeRemaining(state, tradingEnded)
		state.snapshotEquity(tradingEnded)
	}

	result := &Result{
		Period:         Period{Start: tradingStarted, End: tradingEnded},
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   state.currentCapital,
		Trades:         state.closedPositions,
		EquityCurve:    state.equityCurve,
		MaxDrawdown:    state.maxDrawdown,
		Diagnostics:    state.diagnostics,
	}
	result.Metrics = ComputeMetrics(result.Trades, result.EquityCurve, e.cfg.InitialCapital, MetricOptions{
		RiskFreeRate:        e.cfg.RiskFreeRate,
		AnnualizationFactor: e.cfg.AnnualizationFactor,
		ConfidenceLevel:     e.cfg.ConfidenceLevel,
	})

	monitoring.ObserveRun("single", time.Since(started), result.FinalCapital)
	return result, nil
}

// advance moves each symbol cursor up to ts, appends the bar for this
// timestep to the symbol's history and returns the bars present at ts.
// Degenerate bars are recorded and dropped so that a single bad data
// point cannot abort a multi-year run.
func (e *Engine) advance(state *simulationState, universe map[string][]types.Bar, cursor map[string]int, history map[string][]types.Bar, ts time.Time) map[string]types.Bar {
	current := make(map[string]types.Bar)
	for symbol, bars := range universe {
		i := cursor[symbol]
		if i >= len(bars) || !bars[i].Timestamp.Equal(ts) {
			continue // gap for this symbol: no signal today, not an error
		}
		cursor[symbol] = i + 1

		bar := bars[i]
		if bar.Close <= 0 || bar.High < bar.Low {
			state.record(ts, symbol, DiagDegenerateBar,
				fmt.Sprintf("dropped bar close=%v high=%v low=%v", bar.Close, bar.High, bar.Low))
			continue
		}

		current[symbol] = bar
		history[symbol] = append(history[symbol], bar)
		state.lastClose[symbol] = bar.Close
	}
	return current
}

// sweepPositions checks every open position against the current bar's
// range. When both the stop and the target lie inside one bar the stop
// wins: the conservative fill for an engine that cannot see intra-bar
// ordering.
func (e *Engine) sweepPositions(state *simulationState, current map[string]types.Bar, ts time.Time) {
	for _, id := range state.openIDs() {
		p := state.openPositions[id]
		bar, ok := current[p.Symbol]
		if !ok {
			continue
		}

		var exitRef float64
		var reason ExitReason
		if p.Direction == types.Long {
			switch {
			case bar.Low <= p.StopLossPrice:
				exitRef, reason = p.StopLossPrice, ExitStopLoss
			case bar.High >= p.TakeProfitPrice:
				exitRef, reason = p.TakeProfitPrice, ExitTakeProfit
			default:
				continue
			}
		} else {
			switch {
			case bar.High >= p.StopLossPrice:
				exitRef, reason = p.StopLossPrice, ExitStopLoss
			case bar.Low <= p.TakeProfitPrice:
				exitRef, reason = p.TakeProfitPrice, ExitTakeProfit
			default:
				continue
			}
		}

		e.closePosition(state, p, exitRef, ts, reason, true)
	}
}

// admit runs the admission checks for one signal and opens a position
// when they all pass. Rejections are normal outcomes, recorded as
// diagnostics.
func (e *Engine) admit(state *simulationState, sig types.Signal, ts time.Time) {
	if len(state.openPositions) >= e.cfg.MaxOpenPositions {
		state.record(ts, sig.Symbol, DiagPositionLimit,
			fmt.Sprintf("open positions at limit %d", e.cfg.MaxOpenPositions))
		return
	}

	qty := e.sizer.Quantity(state.currentCapital, sig.ReferencePrice, sig.Confidence)
	if qty <= 0 {
		state.record(ts, sig.Symbol, DiagZeroQuantity, "sizer returned no quantity")
		return
	}

	// Slippage moves the fill against the trade.
	entryPrice := sig.ReferencePrice * (1 + e.cfg.SlippageRate*sig.Direction.Sign())
	notional := qty * entryPrice
	commission := notional * e.cfg.CommissionRate

	if notional+commission > state.currentCapital {
		state.record(ts, sig.Symbol, DiagCapitalExhausted,
			fmt.Sprintf("need %.2f, have %.2f", notional+commission, state.currentCapital))
		return
	}

	state.currentCapital -= notional + commission

	p := &Position{
		ID:             state.nextPositionID,
		Symbol:         sig.Symbol,
		Direction:      sig.Direction,
		EntryPrice:     entryPrice,
		Quantity:       qty,
		EntryTimestamp: ts,
		CommissionPaid: commission,
	}
	state.nextPositionID++

	if sig.Direction == types.Long {
		p.StopLossPrice = entryPrice * (1 - e.cfg.StopLossFraction)
		p.TakeProfitPrice = entryPrice * (1 + e.cfg.TakeProfitFraction)
	} else {
		p.StopLossPrice = entryPrice * (1 + e.cfg.StopLossFraction)
		p.TakeProfitPrice = entryPrice * (1 - e.cfg.TakeProfitFraction)
	}

	state.openPositions[p.ID] = p
}

// closePosition realizes a position at the given reference price and
// returns its capital to the account. Slippage applies to stop and
// target exits; forced end-of-backtest closes settle at the raw last
// price.
func (e *Engine) closePosition(state *simulationState, p *Position, exitRef float64, ts time.Time, reason ExitReason, slip bool) {
	exitPrice := exitRef
	if slip {
		exitPrice = exitRef * (1 - e.cfg.SlippageRate*p.Direction.Sign())
	}

	exitCommission := p.Quantity * exitPrice * e.cfg.CommissionRate
	p.close(exitPrice, ts, reason, exitCommission)

	if p.Direction == types.Long {
		state.currentCapital += p.Quantity*exitPrice - exitCommission
	} else {
		state.currentCapital += p.Quantity*(2*p.EntryPrice-exitPrice) - exitCommission
	}

	delete(state.openPositions, p.ID)
	state.closedPositions = append(state.closedPositions, p)
	monitoring.RecordTrade(p.Symbol, string(reason), p.RealizedPnL)
}

// closeRemaining force-closes whatever is still open at the end of the
// historical range at the last available close.
func (e *Engine) closeRemaining(state *simulationState, ts time.Time) {
	for _, id := range state.openIDs() {
		p := state.openPositions[id]
		price, ok := state.lastClose[p.Symbol]
		if !ok {
			price = p.EntryPrice
		}
		e.closePosition(state, p, price, ts, ExitEndOfBacktest, false)
	}
}

// buildTimeline returns the sorted union of all bar timestamps across
// the universe.
func buildTimeline(universe map[string][]types.Bar) []time.Time {
	seen := make(map[int64]time.Time)
	for _, bars := range universe {
		for _, bar := range bars {
			seen[bar.Timestamp.UnixNano()] = bar.Timestamp
		}
	}

	timeline := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		timeline = append(timeline, ts)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })
	return timeline
}
