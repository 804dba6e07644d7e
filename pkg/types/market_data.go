package types

import "time"

// Bar is a single OHLCV record for one symbol at one timestamp.
// Bars are owned by the data source and never mutated by the engine.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Direction is the side of a trade signal or position.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Sign returns +1 for long and -1 for short, used in PnL arithmetic.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Signal is an ephemeral trade intent produced for one symbol at one
// timestep. It is consumed by the execution simulator and discarded.
type Signal struct {
	Symbol         string
	Direction      Direction
	Confidence     float64
	ReferencePrice float64
	Timestamp      time.Time
}
