// Package risk provides position-sizing policies for the simulator.
package risk

// Sizer decides how many units to buy or sell for an accepted signal.
// Implementations must be pure: the simulator relies on identical inputs
// producing identical quantities for deterministic replay.
type Sizer interface {
	// Quantity returns the position size for the given free capital,
	// reference price and signal confidence. A zero return rejects the
	// trade.
	Quantity(capital, price, confidence float64) float64

	Name() string
}

// FixedFraction allocates a constant fraction of current capital per
// trade regardless of confidence. This is the default policy.
type FixedFraction struct {
	Fraction float64
}

// NewFixedFraction returns a fixed-fraction sizer. Fractions outside
// (0, 1] fall back to 10%.
func NewFixedFraction(fraction float64) *FixedFraction {
	if fraction <= 0 || fraction > 1 {
		fraction = 0.10
	}
	return &FixedFraction{Fraction: fraction}
}

func (s *FixedFraction) Quantity(capital, price, confidence float64) float64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	return capital * s.Fraction / price
}

func (s *FixedFraction) Name() string { return "fixed_fraction" }

// ConfidenceScaled scales a base fraction by signal confidence so high
// conviction signals get larger allocations, bounded between 50% and
// 150% of the base fraction.
type ConfidenceScaled struct {
	BaseFraction float64
}

// NewConfidenceScaled returns a confidence-scaled sizer.
func NewConfidenceScaled(baseFraction float64) *ConfidenceScaled {
	if baseFraction <= 0 || baseFraction > 1 {
		baseFraction = 0.10
	}
	return &ConfidenceScaled{BaseFraction: baseFraction}
}

func (s *ConfidenceScaled) Quantity(capital, price, confidence float64) float64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	fraction := s.BaseFraction * (0.5 + confidence)
	if fraction > 1 {
		fraction = 1
	}
	return capital * fraction / price
}

func (s *ConfidenceScaled) Name() string { return "confidence_scaled" }
