package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/quantlab/strategy-backtest/internal/backtest"
)

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct{}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{}
}

// resultSummary is the JSON shape written for a single run. The full
// trade list lives in the CSV/Excel outputs; this file is the
// machine-readable headline.
type resultSummary struct {
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	InitialCapital   float64   `json:"initial_capital"`
	FinalCapital     float64   `json:"final_capital"`
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	SortinoRatio     float64   `json:"sortino_ratio"`
	CalmarRatio      float64   `json:"calmar_ratio"`
	ProfitFactor     *float64  `json:"profit_factor"` // null when infinite
	WinRate          float64   `json:"win_rate"`
	TotalTrades      int       `json:"total_trades"`
	ValueAtRisk      float64   `json:"value_at_risk"`
	ConditionalVaR   float64   `json:"conditional_var"`
	Diagnostics      int       `json:"diagnostics"`
}

// FormatResult formats a run summary as indented JSON
func (f *DefaultJSONFormatter) FormatResult(result *backtest.Result) ([]byte, error) {
	m := result.Metrics

	var pf *float64
	if !math.IsInf(m.ProfitFactor, 1) {
		v := m.ProfitFactor
		pf = &v
	}

	summary := resultSummary{
		PeriodStart:      result.Period.Start,
		PeriodEnd:        result.Period.End,
		InitialCapital:   result.InitialCapital,
		FinalCapital:     result.FinalCapital,
		TotalReturn:      m.TotalReturn,
		AnnualizedReturn: m.AnnualizedReturn,
		MaxDrawdown:      m.MaxDrawdown,
		SharpeRatio:      m.SharpeRatio,
		SortinoRatio:     m.SortinoRatio,
		CalmarRatio:      m.CalmarRatio,
		ProfitFactor:     pf,
		WinRate:          m.WinRate,
		TotalTrades:      m.TotalTrades,
		ValueAtRisk:      m.ValueAtRisk,
		ConditionalVaR:   m.ConditionalVaR,
		Diagnostics:      len(result.Diagnostics),
	}

	return json.MarshalIndent(summary, "", "  ")
}

// WriteResultJSON writes a run summary to a JSON file
func (f *DefaultJSONFormatter) WriteResultJSON(result *backtest.Result, path string) error {
	data, err := f.FormatResult(result)
	if err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// bestParamsFile is the JSON shape for walk-forward winners, one entry
// per window.
type bestParamsFile struct {
	Windows []bestParamsEntry `json:"windows"`
}

type bestParamsEntry struct {
	TestStart  int               `json:"test_start"`
	TestEnd    int               `json:"test_end"`
	Params     backtest.ParamSet `json:"params"`
	TrainScore float64           `json:"train_score"`
	TestReturn float64           `json:"test_return"`
	TestSharpe float64           `json:"test_sharpe"`
	Error      string            `json:"error,omitempty"`
}

// WriteBestParamsJSON writes each window's winning parameter set
func (f *DefaultJSONFormatter) WriteBestParamsJSON(result *backtest.WalkForwardResult, path string) error {
	out := bestParamsFile{Windows: make([]bestParamsEntry, 0, len(result.Windows))}
	for _, wr := range result.Windows {
		entry := bestParamsEntry{
			TestStart: wr.Window.TestStart,
			TestEnd:   wr.Window.TestEnd,
			Params:    wr.BestParams,
		}
		if wr.Err != nil {
			entry.Error = wr.Err.Error()
		} else {
			entry.TrainScore = wr.TrainScore
			entry.TestReturn = wr.Test.Metrics.TotalReturn
			entry.TestSharpe = wr.Test.Metrics.SharpeRatio
		}
		out.Windows = append(out.Windows, entry)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PrintResult prints a run summary as JSON to the console
func (f *DefaultJSONFormatter) PrintResult(result *backtest.Result) {
	data, err := f.FormatResult(result)
	if err != nil {
		fmt.Printf("failed to format result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
