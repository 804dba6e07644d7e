package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quantlab/strategy-backtest/internal/backtest"
	"github.com/quantlab/strategy-backtest/internal/config"
	"github.com/quantlab/strategy-backtest/internal/monitoring"
	"github.com/quantlab/strategy-backtest/internal/risk"
	"github.com/quantlab/strategy-backtest/internal/signal"
	"github.com/quantlab/strategy-backtest/pkg/data"
	"github.com/quantlab/strategy-backtest/pkg/reporting"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

const (
	AppName    = "Strategy Backtest"
	AppVersion = "1.0.0"

	DefaultDataRoot = "data"
	DefaultInterval = "1d"
)

func main() {
	flags := NewFlags()
	flag.Parse()

	if err := ValidateFlags(flags); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	if *flags.ShowHelp {
		printUsageHelp()
		return
	}

	printHeader()
	loadEnvironment(*flags.EnvFile)

	cfg, err := loadConfiguration(flags)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if *flags.MetricsListen != "" {
		startMetricsServer(*flags.MetricsListen)
	}

	universe, err := loadUniverse(flags, cfg)
	if err != nil {
		log.Fatalf("❌ Data error: %v", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := reporting.NewManager(reporting.Config{
		EnableConsole:   true,
		EnableFiles:     !*flags.ConsoleOnly,
		OutputDirectory: *flags.OutputDir,
		CSVEnabled:      true,
		JSONEnabled:     true,
		ExcelEnabled:    !*flags.NoExcel,
	})

	switch {
	case *flags.WalkForward:
		runWalkForward(ctx, flags, cfg, universe, reporter)
	case *flags.MonteCarlo:
		runMonteCarlo(ctx, flags, cfg, universe, reporter)
	default:
		runSingleBacktest(ctx, flags, cfg, universe, reporter)
	}
}

func printHeader() {
	fmt.Printf("🚀 %s v%s\n", AppName, AppVersion)
	fmt.Println("   Bar-by-bar strategy simulation with walk-forward and Monte Carlo analysis")
	fmt.Println()
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", envFile, err)
	}
}

// loadConfiguration merges the config file with explicitly-set flags.
// Flags the user did not pass leave the file/default values alone.
func loadConfiguration(flags *Flags) (config.Config, error) {
	var cfg config.Config
	var err error

	if *flags.ConfigFile != "" {
		cfg, err = config.Load(*flags.ConfigFile)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.Default()
	}

	if *flags.Symbols != "" {
		cfg.Symbols = parseSymbols(*flags.Symbols)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["capital"] {
		cfg.InitialCapital = *flags.InitialCapital
	}
	if set["commission"] {
		cfg.CommissionRate = *flags.Commission
	}
	if set["slippage"] {
		cfg.SlippageRate = *flags.Slippage
	}
	if set["stop-loss"] {
		cfg.StopLossFraction = *flags.StopLoss
	}
	if set["take-profit"] {
		cfg.TakeProfitFraction = *flags.TakeProfit
	}
	if set["position-fraction"] {
		cfg.PositionFraction = *flags.PositionFraction
	}
	if set["confidence-floor"] {
		cfg.ConfidenceFloor = *flags.ConfidenceFloor
	}
	if set["max-positions"] {
		cfg.MaxOpenPositions = *flags.MaxPositions
	}
	if set["trials"] {
		cfg.MonteCarloTrials = *flags.Trials
	}
	if set["seed"] {
		cfg.RandomSeed = *flags.Seed
	}

	return cfg, cfg.Validate()
}

// loadUniverse loads every configured symbol and applies the optional
// trailing-period filter.
func loadUniverse(flags *Flags, cfg config.Config) (map[string][]types.Bar, error) {
	manager := data.NewManager()
	universe, err := manager.LoadUniverse(*flags.DataRoot, cfg.Symbols, *flags.Interval)
	if err != nil {
		return nil, err
	}

	if *flags.Period != "" {
		period, ok := data.ParseTrailingPeriod(*flags.Period)
		if !ok {
			return nil, fmt.Errorf("invalid period format: %s (use 7d, 30d, 180d)", *flags.Period)
		}
		filter := data.NewDefaultFilter()
		for symbol, bars := range universe {
			universe[symbol] = filter.FilterByPeriod(bars, period)
		}
	}

	totalBars := 0
	for _, bars := range universe {
		totalBars += len(bars)
	}
	log.Printf("📊 Loaded %d symbols, %d bars total", len(universe), totalBars)
	return universe, nil
}

func buildMapper(flags *Flags) signal.Mapper {
	if *flags.Mapper == "classifier" {
		return signal.NewClassifierMapper()
	}
	return signal.NewRegressionMapper()
}

func buildSizer(flags *Flags, cfg config.Config) risk.Sizer {
	if *flags.Sizer == "confidence" {
		return risk.NewConfidenceScaled(cfg.PositionFraction)
	}
	return risk.NewFixedFraction(cfg.PositionFraction)
}

func runSingleBacktest(ctx context.Context, flags *Flags, cfg config.Config, universe map[string][]types.Bar, reporter *reporting.Manager) {
	log.Println("🔄 Running backtest...")

	engine := backtest.NewEngine(cfg, signal.NewMomentumPredictor(), buildMapper(flags),
		backtest.WithSizer(buildSizer(flags, cfg)))
	result, err := engine.Run(ctx, universe)
	if err != nil {
		log.Fatalf("❌ Backtest failed: %v", err)
	}

	if err := reporter.ReportResult(result, "single"); err != nil {
		log.Fatalf("❌ Report error: %v", err)
	}
}

func runWalkForward(ctx context.Context, flags *Flags, cfg config.Config, universe map[string][]types.Bar, reporter *reporting.Manager) {
	ranges := buildParamRanges(flags)
	if len(ranges) == 0 {
		log.Fatalf("❌ Walk-forward needs at least one -opt-* parameter grid")
	}

	log.Printf("🔄 Running walk-forward optimization (%d parameter ranges)...", len(ranges))

	optimizer := backtest.NewWalkForwardOptimizer(cfg, signal.NewMomentumPredictor(), buildMapper(flags), ranges, *flags.Workers)
	optimizer.SetSizer(buildSizer(flags, cfg))

	result, err := optimizer.Run(ctx, universe)
	if err != nil {
		log.Fatalf("❌ Walk-forward failed: %v", err)
	}

	if err := reporter.ReportWalkForward(result); err != nil {
		log.Fatalf("❌ Report error: %v", err)
	}
}

func runMonteCarlo(ctx context.Context, flags *Flags, cfg config.Config, universe map[string][]types.Bar, reporter *reporting.Manager) {
	log.Println("🔄 Running backtest...")

	engine := backtest.NewEngine(cfg, signal.NewMomentumPredictor(), buildMapper(flags),
		backtest.WithSizer(buildSizer(flags, cfg)))
	source, err := engine.Run(ctx, universe)
	if err != nil {
		log.Fatalf("❌ Backtest failed: %v", err)
	}

	if err := reporter.ReportResult(source, "monte_carlo"); err != nil {
		log.Fatalf("❌ Report error: %v", err)
	}

	log.Printf("🎲 Resampling %d trades over %d trials...", len(source.Trades), cfg.MonteCarloTrials)
	mc, err := backtest.RunMonteCarlo(ctx, source, cfg)
	if err != nil {
		log.Fatalf("❌ Monte Carlo failed: %v", err)
	}

	reporter.ReportMonteCarlo(mc)
}

func buildParamRanges(flags *Flags) []backtest.ParamRange {
	var ranges []backtest.ParamRange

	add := func(name, raw string) {
		if raw == "" {
			return
		}
		values, err := parseGridValues(raw)
		if err != nil {
			// Already rejected by ValidateFlags.
			return
		}
		ranges = append(ranges, backtest.ParamRange{Name: name, Values: values})
	}

	add("stop_loss_fraction", *flags.OptStopLoss)
	add("take_profit_fraction", *flags.OptTakeProfit)
	add("position_fraction", *flags.OptPositionFraction)
	add("confidence_floor", *flags.OptConfidenceFloor)
	return ranges
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	go func() {
		log.Printf("📡 Prometheus metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("⚠️  Metrics server stopped: %v", err)
		}
	}()
}

func printUsageHelp() {
	fmt.Printf("%s v%s\n\n", AppName, AppVersion)
	fmt.Println("USAGE:")
	fmt.Println("  backtest [flags]")
	fmt.Println()
	fmt.Println("MODES:")
	fmt.Println("  (default)        Single backtest over the full date range")
	fmt.Println("  -walk-forward    Rolling-window grid search with out-of-sample evaluation")
	fmt.Println("  -monte-carlo     Backtest plus bootstrap resampling of the trade sequence")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  backtest -symbols AAPL,MSFT -data-root data")
	fmt.Println("  backtest -config configs/momentum.json -period 365d")
	fmt.Println("  backtest -symbols AAPL -walk-forward -opt-stop-loss 0.03,0.05,0.07")
	fmt.Println("  backtest -symbols AAPL -monte-carlo -trials 5000 -seed 7")
	fmt.Println()
	flag.PrintDefaults()
}
