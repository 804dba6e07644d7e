// Package features turns rolling OHLCV windows into fixed-length numeric
// vectors for the predictor.
package features

import (
	"fmt"

	"github.com/quantlab/strategy-backtest/internal/indicators"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

// VectorSize is the length of every extracted feature vector.
const VectorSize = 10

// MinWindow is the smallest bar window Extract accepts. It covers the
// longest indicator lookback used below (RSI and volatility need
// period+1 bars).
const MinWindow = 30

// Extractor computes feature vectors from bar windows. The zero value is
// not usable; construct with NewExtractor.
type Extractor struct {
	smaPeriod  int
	emaPeriod  int
	rsiPeriod  int
	volPeriod  int
	bbPeriod   int
	bbStdDevs  float64
	macdFast   int
	macdSlow   int
	macdSignal int
}

// NewExtractor returns an extractor with the standard indicator periods.
func NewExtractor() *Extractor {
	return &Extractor{
		smaPeriod:  10,
		emaPeriod:  10,
		rsiPeriod:  14,
		volPeriod:  14,
		bbPeriod:   20,
		bbStdDevs:  2.0,
		macdFast:   8,
		macdSlow:   17,
		macdSignal: 9,
	}
}

// Extract maps a chronological bar window to a VectorSize-length feature
// vector describing recent price action. The window must end at the bar
// being predicted for and hold at least MinWindow bars.
func (e *Extractor) Extract(window []types.Bar) ([]float64, error) {
	if len(window) < MinWindow {
		return nil, indicators.ErrInsufficientData
	}

	closes := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, bar := range window {
		if bar.Close <= 0 {
			return nil, fmt.Errorf("bar %s at %s: %w", bar.Symbol, bar.Timestamp.Format("2006-01-02"), indicators.ErrDegenerateWindow)
		}
		closes[i] = bar.Close
		volumes[i] = bar.Volume
	}

	last := window[len(window)-1]
	prevClose := closes[len(closes)-2]

	sma, err := indicators.SMA(closes, e.smaPeriod)
	if err != nil {
		return nil, err
	}
	ema, err := indicators.EMA(closes, e.emaPeriod)
	if err != nil {
		return nil, err
	}
	rsi, err := indicators.RSI(closes, e.rsiPeriod)
	if err != nil {
		return nil, err
	}
	vol, err := indicators.Volatility(closes, e.volPeriod)
	if err != nil {
		return nil, err
	}
	pb, err := indicators.PercentB(closes, e.bbPeriod, e.bbStdDevs)
	if err != nil {
		return nil, err
	}
	macd, err := indicators.MACD(closes, e.macdFast, e.macdSlow, e.macdSignal)
	if err != nil {
		return nil, err
	}

	fiveBack := closes[len(closes)-6]
	volSMA, err := indicators.SMA(volumes, e.smaPeriod)
	if err != nil {
		return nil, err
	}
	volumeRatio := 0.0
	if volSMA > 0 {
		volumeRatio = last.Volume/volSMA - 1.0
	}

	return []float64{
		last.Close/prevClose - 1.0,          // one-bar return
		last.Close/fiveBack - 1.0,           // five-bar return
		last.Close/sma - 1.0,                // distance from SMA
		last.Close/ema - 1.0,                // distance from EMA
		(rsi - 50.0) / 50.0,                 // RSI centered to [-1, 1]
		macd.Histogram / last.Close,         // MACD histogram, price-normalized
		pb,                                  // Bollinger %B
		vol,                                 // rolling return volatility
		volumeRatio,                         // volume vs its own average
		(last.High - last.Low) / last.Close, // bar range
	}, nil
}
