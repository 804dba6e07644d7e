package reporting

import (
	"path/filepath"

	"github.com/quantlab/strategy-backtest/internal/backtest"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONFormatter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONFormatter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResult(result *backtest.Result) {
	r.console.OutputResult(result)
}

func (r *DefaultReporter) OutputWalkForward(result *backtest.WalkForwardResult) {
	r.console.OutputWalkForward(result)
}

func (r *DefaultReporter) OutputMonteCarlo(result *backtest.MonteCarloResult) {
	r.console.OutputMonteCarlo(result)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(result *backtest.Result, path string) error {
	return r.csv.WriteTradesCSV(result, path)
}

func (r *DefaultReporter) WriteEquityCSV(result *backtest.Result, path string) error {
	return r.csv.WriteEquityCSV(result, path)
}

func (r *DefaultReporter) WriteResultJSON(result *backtest.Result, path string) error {
	return r.json.WriteResultJSON(result, path)
}

func (r *DefaultReporter) WriteBestParamsJSON(result *backtest.WalkForwardResult, path string) error {
	return r.json.WriteBestParamsJSON(result, path)
}

func (r *DefaultReporter) WriteWorkbook(result *backtest.Result, path string) error {
	return r.excel.WriteWorkbook(result, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(mode string) string {
	return r.paths.GetDefaultOutputDir(mode)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// Manager drives a full reporting pass according to configuration
type Manager struct {
	reporter *DefaultReporter
	config   Config
}

// NewManager creates a reporting manager with the given configuration
func NewManager(config Config) *Manager {
	return &Manager{
		reporter: NewDefaultReporter(),
		config:   config,
	}
}

// ReportResult outputs one finished backtest everywhere the config asks
func (m *Manager) ReportResult(result *backtest.Result, mode string) error {
	if m.config.EnableConsole {
		m.reporter.OutputResult(result)
	}

	if !m.config.EnableFiles {
		return nil
	}

	outputDir := m.config.OutputDirectory
	if outputDir == "" {
		outputDir = m.reporter.GetDefaultOutputDir(mode)
	}
	if err := m.reporter.EnsureDirectoryExists(outputDir); err != nil {
		return err
	}

	if m.config.CSVEnabled {
		if err := m.reporter.WriteTradesCSV(result, filepath.Join(outputDir, "trades.csv")); err != nil {
			return err
		}
		if err := m.reporter.WriteEquityCSV(result, filepath.Join(outputDir, "equity.csv")); err != nil {
			return err
		}
	}

	if m.config.JSONEnabled {
		if err := m.reporter.WriteResultJSON(result, filepath.Join(outputDir, "summary.json")); err != nil {
			return err
		}
	}

	if m.config.ExcelEnabled {
		if err := m.reporter.WriteWorkbook(result, filepath.Join(outputDir, "report.xlsx")); err != nil {
			return err
		}
	}

	return nil
}

// ReportWalkForward outputs a walk-forward run
func (m *Manager) ReportWalkForward(result *backtest.WalkForwardResult) error {
	if m.config.EnableConsole {
		m.reporter.OutputWalkForward(result)
	}

	if !m.config.EnableFiles || !m.config.JSONEnabled {
		return nil
	}

	outputDir := m.config.OutputDirectory
	if outputDir == "" {
		outputDir = m.reporter.GetDefaultOutputDir("walk_forward")
	}
	if err := m.reporter.EnsureDirectoryExists(outputDir); err != nil {
		return err
	}

	return m.reporter.WriteBestParamsJSON(result, filepath.Join(outputDir, "best_params.json"))
}

// ReportMonteCarlo outputs a Monte Carlo run
func (m *Manager) ReportMonteCarlo(result *backtest.MonteCarloResult) {
	if m.config.EnableConsole {
		m.reporter.OutputMonteCarlo(result)
	}
}
