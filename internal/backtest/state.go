package backtest

import (
	"sort"
	"time"
)

// DiagnosticKind classifies the non-fatal conditions a run records
// instead of aborting.
type DiagnosticKind string

const (
	DiagDegenerateBar    DiagnosticKind = "degenerate_bar"
	DiagSignalSkipped    DiagnosticKind = "signal_skipped"
	DiagPositionLimit    DiagnosticKind = "position_limit"
	DiagCapitalExhausted DiagnosticKind = "capital_exhausted"
	DiagZeroQuantity     DiagnosticKind = "zero_quantity"
)

// Diagnostic is one recorded skip or rejection.
type Diagnostic struct {
	Timestamp time.Time
	Symbol    string
	Kind      DiagnosticKind
	Message   string
}

// EquityPoint is one snapshot of total account value.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// simulationState is the single mutable aggregate of one run. It is
// owned exclusively by the Run invocation that created it and is never
// shared across concurrent runs.
type simulationState struct {
	currentCapital  float64
	openPositions   map[int]*Position
	closedPositions []*Position
	equityCurve     []EquityPoint
	peakEquity      float64
	maxDrawdown     float64
	diagnostics     []Diagnostic
	nextPositionID  int
	lastClose       map[string]float64
}

func newSimulationState(initialCapital float64) *simulationState {
	// peakEquity starts at zero so the first snapshot establishes the
	// peak; that keeps the incremental drawdown identical to a recompute
	// over the finished curve.
	return &simulationState{
		currentCapital: initialCapital,
		openPositions:  make(map[int]*Position),
		nextPositionID: 1,
		lastClose:      make(map[string]float64),
	}
}

// openIDs returns open position ids in ascending order so every sweep
// over the map is deterministic.
func (s *simulationState) openIDs() []int {
	ids := make([]int, 0, len(s.openPositions))
	for id := range s.openPositions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *simulationState) record(ts time.Time, symbol string, kind DiagnosticKind, msg string) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Timestamp: ts,
		Symbol:    symbol,
		Kind:      kind,
		Message:   msg,
	})
}

// snapshotEquity appends one equity point, marking open positions to the
// latest known close per symbol, and folds it into the running peak and
// max drawdown.
func (s *simulationState) snapshotEquity(ts time.Time) {
	equity := s.currentCapital
	for _, id := range s.openIDs() {
		p := s.openPositions[id]
		price, ok := s.lastClose[p.Symbol]
		if !ok {
			price = p.EntryPrice
		}
		equity += p.markValue(price)
	}

	s.equityCurve = append(s.equityCurve, EquityPoint{Timestamp: ts, Equity: equity})

	if equity > s.peakEquity {
		s.peakEquity = equity
	}
	if s.peakEquity > 0 {
		dd := (s.peakEquity - equity) / s.peakEquity
		if dd > s.maxDrawdown {
			s.maxDrawdown = dd
		}
	}
}
