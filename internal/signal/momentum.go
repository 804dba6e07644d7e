package signal

import (
	"fmt"

	"github.com/quantlab/strategy-backtest/internal/features"
)

// momentumWeights is a fixed linear read of the feature vector: recent
// returns and MACD histogram push the estimate with the trend, RSI and
// %B pull it back when the move looks stretched. The output is an
// expected next-period return, sized for RegressionMapper thresholds.
var momentumWeights = [features.VectorSize]float64{
	0.30,  // 1-bar return
	0.20,  // 5-bar return
	0.05,  // distance from SMA
	0.05,  // distance from EMA
	-0.02, // normalized RSI
	0.40,  // MACD histogram / close
	-0.02, // Bollinger %B
	-0.05, // volatility drag
	0.00,  // volume ratio
	0.00,  // bar range
}

// MomentumPredictor is the built-in model: a deterministic linear scorer
// over the extracted features. It exists so the engine is usable without
// an external model; callers with a real model supply their own
// Predictor.
type MomentumPredictor struct {
	weights [features.VectorSize]float64
}

// NewMomentumPredictor creates the built-in momentum predictor
func NewMomentumPredictor() *MomentumPredictor {
	return &MomentumPredictor{weights: momentumWeights}
}

// Predict returns the weighted sum of the feature vector.
func (p *MomentumPredictor) Predict(featureVector []float64) (float64, error) {
	if len(featureVector) != features.VectorSize {
		return 0, fmt.Errorf("signal: expected %d features, got %d", features.VectorSize, len(featureVector))
	}

	raw := 0.0
	for i, w := range p.weights {
		raw += w * featureVector[i]
	}
	return raw, nil
}
