// Package indicators provides pure window functions over price series.
// All functions are stateless: they read a slice of prices and return a
// value, so callers own all rolling-window bookkeeping.
package indicators

import "errors"

// ErrInsufficientData is returned when a window is shorter than the
// requested indicator period.
var ErrInsufficientData = errors.New("insufficient data for indicator calculation")

// ErrDegenerateWindow is returned when a window contains values (zero
// prices) that make the indicator undefined.
var ErrDegenerateWindow = errors.New("degenerate price window")

// SMA returns the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 || len(prices) < period {
		return 0, ErrInsufficientData
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}
