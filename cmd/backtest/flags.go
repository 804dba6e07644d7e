package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Flags holds all command line flags for the backtest command
type Flags struct {
	// Configuration
	ConfigFile *string
	DataRoot   *string
	Interval   *string
	Symbols    *string
	Period     *string

	// Account settings
	InitialCapital *float64
	Commission     *float64
	Slippage       *float64

	// Strategy parameters
	StopLoss         *float64
	TakeProfit       *float64
	PositionFraction *float64
	ConfidenceFloor  *float64
	MaxPositions     *int
	Mapper           *string
	Sizer            *string

	// Analysis options
	WalkForward *bool
	MonteCarlo  *bool
	Trials      *int
	Seed        *int64
	Workers     *int

	// Walk-forward parameter grids (comma-separated values)
	OptStopLoss         *string
	OptTakeProfit       *string
	OptPositionFraction *string
	OptConfidenceFloor  *string

	// Output options
	OutputDir     *string
	ConsoleOnly   *bool
	NoExcel       *bool
	MetricsListen *string
	EnvFile       *string

	// Help and version
	ShowVersion *bool
	ShowHelp    *bool
}

// NewFlags creates and registers all command line flags
func NewFlags() *Flags {
	return &Flags{
		// Configuration
		ConfigFile: flag.String("config", "", "Path to JSON configuration file"),
		DataRoot:   flag.String("data-root", DefaultDataRoot, "Root directory of historical bar files"),
		Interval:   flag.String("interval", DefaultInterval, "Data interval (1d, 1h, 5m)"),
		Symbols:    flag.String("symbols", "", "Comma-separated symbols (overrides config)"),
		Period:     flag.String("period", "", "Trailing period filter (7d, 30d, 180d)"),

		// Account settings
		InitialCapital: flag.Float64("capital", 0, "Initial capital (overrides config)"),
		Commission:     flag.Float64("commission", 0, "Commission rate (0.001 = 0.1%)"),
		Slippage:       flag.Float64("slippage", 0, "Slippage rate (0.0005 = 0.05%)"),

		// Strategy parameters
		StopLoss:         flag.Float64("stop-loss", 0, "Stop-loss fraction (0.05 = 5%)"),
		TakeProfit:       flag.Float64("take-profit", 0, "Take-profit fraction (0.10 = 10%)"),
		PositionFraction: flag.Float64("position-fraction", 0, "Capital fraction per position"),
		ConfidenceFloor:  flag.Float64("confidence-floor", 0, "Minimum signal confidence"),
		MaxPositions:     flag.Int("max-positions", 0, "Maximum concurrent open positions"),
		Mapper:           flag.String("mapper", "regression", "Prediction mapper (regression, classifier)"),
		Sizer:            flag.String("sizer", "fixed", "Position sizer (fixed, confidence)"),

		// Analysis options
		WalkForward: flag.Bool("walk-forward", false, "Run walk-forward optimization"),
		MonteCarlo:  flag.Bool("monte-carlo", false, "Run Monte Carlo resampling after the backtest"),
		Trials:      flag.Int("trials", 0, "Monte Carlo trials (overrides config)"),
		Seed:        flag.Int64("seed", -1, "Random seed for Monte Carlo (overrides config)"),
		Workers:     flag.Int("workers", 0, "Grid-search worker count (0 = host CPUs)"),

		// Walk-forward parameter grids
		OptStopLoss:         flag.String("opt-stop-loss", "", "Stop-loss grid values, e.g. 0.03,0.05,0.07"),
		OptTakeProfit:       flag.String("opt-take-profit", "", "Take-profit grid values"),
		OptPositionFraction: flag.String("opt-position-fraction", "", "Position-fraction grid values"),
		OptConfidenceFloor:  flag.String("opt-confidence-floor", "", "Confidence-floor grid values"),

		// Output options
		OutputDir:     flag.String("output", "", "Output directory (default results/<mode>_<timestamp>)"),
		ConsoleOnly:   flag.Bool("console-only", false, "Console output only, no files"),
		NoExcel:       flag.Bool("no-excel", false, "Skip the Excel workbook output"),
		MetricsListen: flag.String("metrics-listen", "", "Address for Prometheus metrics (e.g. :9090)"),
		EnvFile:       flag.String("env", ".env", "Environment file"),

		// Help and version
		ShowVersion: flag.Bool("version", false, "Show version"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// ValidateFlags checks flag combinations before any work starts
func ValidateFlags(flags *Flags) error {
	if *flags.WalkForward && *flags.MonteCarlo {
		return fmt.Errorf("-walk-forward and -monte-carlo are separate modes, pick one")
	}

	switch *flags.Mapper {
	case "regression", "classifier":
	default:
		return fmt.Errorf("unknown mapper %q (regression, classifier)", *flags.Mapper)
	}

	switch *flags.Sizer {
	case "fixed", "confidence":
	default:
		return fmt.Errorf("unknown sizer %q (fixed, confidence)", *flags.Sizer)
	}

	for _, grid := range []struct {
		name  string
		value string
	}{
		{"-opt-stop-loss", *flags.OptStopLoss},
		{"-opt-take-profit", *flags.OptTakeProfit},
		{"-opt-position-fraction", *flags.OptPositionFraction},
		{"-opt-confidence-floor", *flags.OptConfidenceFloor},
	} {
		if grid.value == "" {
			continue
		}
		if !*flags.WalkForward {
			return fmt.Errorf("%s requires -walk-forward", grid.name)
		}
		if _, err := parseGridValues(grid.value); err != nil {
			return fmt.Errorf("%s: %w", grid.name, err)
		}
	}

	return nil
}

// parseGridValues parses a comma-separated float list
func parseGridValues(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid grid value %q", part)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty grid")
	}
	return values, nil
}

// parseSymbols parses the comma-separated symbol list
func parseSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}
