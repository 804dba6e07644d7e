package signal

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/strategy-backtest/internal/features"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

// Generator produces trade signals for one timestep by running the
// predictor over extracted features and applying the configured mapping.
type Generator struct {
	predictor       Predictor
	mapper          Mapper
	extractor       *features.Extractor
	minHistory      int
	confidenceFloor float64
}

// NewGenerator wires a predictor and mapper into a signal generator.
// minHistory bars are required per symbol before any signal is emitted;
// signals below confidenceFloor are dropped. This floor is a business
// rule, not a tunable the simulator second-guesses.
func NewGenerator(predictor Predictor, mapper Mapper, minHistory int, confidenceFloor float64) *Generator {
	if minHistory < features.MinWindow {
		minHistory = features.MinWindow
	}
	return &Generator{
		predictor:       predictor,
		mapper:          mapper,
		extractor:       features.NewExtractor(),
		minHistory:      minHistory,
		confidenceFloor: confidenceFloor,
	}
}

// Generate returns signals for the given timestep. history maps symbol to
// its chronological bars up to and including the current bar. Symbols are
// processed in lexicographic order so the output sequence is
// deterministic. A symbol whose latest bar is older than ts has a gap at
// this timestep and emits nothing: a stale close is not a quote.
// Insufficient history and degenerate windows are expected conditions:
// the symbol is skipped and a note recorded, never an error.
func (g *Generator) Generate(history map[string][]types.Bar, ts time.Time) ([]types.Signal, []string) {
	symbols := make([]string, 0, len(history))
	for symbol := range history {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var signals []types.Signal
	var notes []string

	for _, symbol := range symbols {
		bars := history[symbol]
		if len(bars) < g.minHistory {
			continue // expected during warmup, not worth a note per bar
		}
		if !bars[len(bars)-1].Timestamp.Equal(ts) {
			continue // no bar for this symbol at ts
		}

		window := bars
		if len(window) > g.minHistory {
			window = bars[len(bars)-g.minHistory:]
		}

		vec, err := g.extractor.Extract(window)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: feature extraction skipped: %v", symbol, err))
			continue
		}

		raw, err := g.predictor.Predict(vec)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: predictor error: %v", symbol, err))
			continue
		}

		dir, confidence, ok := g.mapper.Map(raw)
		if !ok || confidence < g.confidenceFloor {
			continue
		}

		last := bars[len(bars)-1]
		signals = append(signals, types.Signal{
			Symbol:         symbol,
			Direction:      dir,
			Confidence:     confidence,
			ReferencePrice: last.Close,
			Timestamp:      ts,
		})
	}

	return signals, notes
}
