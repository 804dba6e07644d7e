package indicators

import "math"

// BollingerBands holds the three band values for a window.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger returns Bollinger Bands over the last period prices using the
// given standard-deviation multiplier (classically 20 and 2.0).
func Bollinger(prices []float64, period int, stdDevs float64) (BollingerBands, error) {
	middle, err := SMA(prices, period)
	if err != nil {
		return BollingerBands{}, err
	}

	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		diff := prices[i] - middle
		variance += diff * diff
	}
	sd := math.Sqrt(variance / float64(period))

	return BollingerBands{
		Upper:  middle + stdDevs*sd,
		Middle: middle,
		Lower:  middle - stdDevs*sd,
	}, nil
}

// PercentB returns the position of the last price inside the bands,
// 0 at the lower band and 1 at the upper band. A flat window (zero band
// width) returns 0.5.
func PercentB(prices []float64, period int, stdDevs float64) (float64, error) {
	bands, err := Bollinger(prices, period, stdDevs)
	if err != nil {
		return 0, err
	}
	width := bands.Upper - bands.Lower
	if width == 0 {
		return 0.5, nil
	}
	return (prices[len(prices)-1] - bands.Lower) / width, nil
}
