package indicators

// MACDResult holds the three MACD components.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns the Moving Average Convergence Divergence with the given
// fast, slow and signal periods (classically 12/26/9). The signal line is
// an EMA of the MACD line computed over the trailing window.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, error) {
	if fastPeriod <= 0 || slowPeriod <= fastPeriod || signalPeriod <= 0 {
		return MACDResult{}, ErrInsufficientData
	}
	if len(prices) < slowPeriod+signalPeriod {
		return MACDResult{}, ErrInsufficientData
	}

	// Build the MACD series for the last signalPeriod points so the signal
	// line has a real history to average over.
	macdSeries := make([]float64, 0, signalPeriod)
	for i := len(prices) - signalPeriod + 1; i <= len(prices); i++ {
		window := prices[:i]
		if len(window) < slowPeriod {
			continue
		}
		fast, err := EMA(window, fastPeriod)
		if err != nil {
			return MACDResult{}, err
		}
		slow, err := EMA(window, slowPeriod)
		if err != nil {
			return MACDResult{}, err
		}
		macdSeries = append(macdSeries, fast-slow)
	}
	if len(macdSeries) == 0 {
		return MACDResult{}, ErrInsufficientData
	}

	macdLine := macdSeries[len(macdSeries)-1]

	signalLine := 0.0
	if len(macdSeries) >= signalPeriod {
		s, err := EMA(macdSeries, signalPeriod)
		if err != nil {
			return MACDResult{}, err
		}
		signalLine = s
	} else {
		s, err := SMA(macdSeries, len(macdSeries))
		if err != nil {
			return MACDResult{}, err
		}
		signalLine = s
	}

	return MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: macdLine - signalLine,
	}, nil
}
