package indicators

// EMA returns the exponential moving average of the last period prices,
// seeded with an SMA over the first period values the way most charting
// platforms compute it.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 || len(prices) < period {
		return 0, ErrInsufficientData
	}

	seed, err := SMA(prices[:period], period)
	if err != nil {
		return 0, err
	}

	multiplier := 2.0 / (float64(period) + 1.0)
	ema := seed
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}
	return ema, nil
}
