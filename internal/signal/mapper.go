package signal

import (
	"math"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// Mapper converts one raw predictor output into a direction and a
// confidence in [0, 1]. Each model family implements its own mapping so
// the rule is explicit and exhaustively testable rather than a switch on
// a model-id string.
type Mapper interface {
	// Map returns the trade direction and confidence for a raw output,
	// or ok=false when the output does not clear the family's threshold.
	Map(raw float64) (dir types.Direction, confidence float64, ok bool)

	// Name identifies the mapping family in reports and diagnostics.
	Name() string
}

// RegressionMapper treats predictor output as an expected fractional
// price change. Outputs above ChangeThreshold go long, below the negated
// threshold go short; confidence scales linearly with |output| and caps
// at 1.0 when |output| reaches FullConfidenceChange.
type RegressionMapper struct {
	ChangeThreshold      float64
	FullConfidenceChange float64
}

// NewRegressionMapper returns the default regression mapping: 1% move
// threshold, full confidence at a 5% predicted move.
func NewRegressionMapper() *RegressionMapper {
	return &RegressionMapper{
		ChangeThreshold:      0.01,
		FullConfidenceChange: 0.05,
	}
}

func (m *RegressionMapper) Map(raw float64) (types.Direction, float64, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, 0, false
	}
	if math.Abs(raw) <= m.ChangeThreshold {
		return 0, 0, false
	}

	confidence := math.Abs(raw) / m.FullConfidenceChange
	if confidence > 1.0 {
		confidence = 1.0
	}

	if raw > 0 {
		return types.Long, confidence, true
	}
	return types.Short, confidence, true
}

func (m *RegressionMapper) Name() string { return "regression" }

// ClassifierMapper treats predictor output as a signed class score in
// [-1, 1]: above 0.5 is a long call, below -0.5 a short call, anything
// between is no signal. Confidence is the score magnitude.
type ClassifierMapper struct{}

// NewClassifierMapper returns the classification mapping.
func NewClassifierMapper() *ClassifierMapper {
	return &ClassifierMapper{}
}

func (m *ClassifierMapper) Map(raw float64) (types.Direction, float64, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, 0, false
	}

	switch {
	case raw > 0.5:
		return types.Long, math.Min(raw, 1.0), true
	case raw < -0.5:
		return types.Short, math.Min(-raw, 1.0), true
	default:
		return 0, 0, false
	}
}

func (m *ClassifierMapper) Name() string { return "classifier" }
