package reporting

import (
	"github.com/quantlab/strategy-backtest/internal/backtest"
)

// Package reporting renders backtest, walk-forward and Monte Carlo
// results to the console and to files.

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResult(result *backtest.Result)
	OutputWalkForward(result *backtest.WalkForwardResult)
	OutputMonteCarlo(result *backtest.MonteCarloResult)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(result *backtest.Result, path string) error
	WriteEquityCSV(result *backtest.Result, path string) error
	WriteResultJSON(result *backtest.Result, path string) error
	WriteWorkbook(result *backtest.Result, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(mode string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// Config holds reporting configuration
type Config struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
