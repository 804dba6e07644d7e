package indicators

import "math"

// Volatility returns the standard deviation of simple returns over the
// last period price changes. Zero prices inside the window make the
// return series undefined, so they yield ErrDegenerateWindow.
func Volatility(prices []float64, period int) (float64, error) {
	if period <= 1 || len(prices) < period+1 {
		return 0, ErrInsufficientData
	}

	returns := make([]float64, 0, period)
	for i := len(prices) - period; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return 0, ErrDegenerateWindow
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(returns))), nil
}
