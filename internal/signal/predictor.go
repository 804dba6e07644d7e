// Package signal maps predictor output to directional trade signals.
package signal

// Predictor is the external model consumed by the signal generator. The
// engine places no requirement on how the value is computed, only that it
// is a pure function of its input for a given model snapshot.
type Predictor interface {
	// Predict returns a raw scalar for a feature vector: a regression
	// value (expected return) or a class score, depending on the model
	// family the configured Mapper understands.
	Predict(features []float64) (float64, error)
}

// PredictorFunc adapts a plain function to the Predictor interface.
type PredictorFunc func(features []float64) (float64, error)

func (f PredictorFunc) Predict(features []float64) (float64, error) {
	return f(features)
}
