package reporting

import (
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantlab/strategy-backtest/internal/backtest"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// OutputResult prints a finished backtest to the console
func (r *DefaultConsoleReporter) OutputResult(result *backtest.Result) {
	m := result.Metrics

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Capital", fmt.Sprintf("$%.2f", result.InitialCapital)},
		{"💰 Final Capital", fmt.Sprintf("$%.2f", result.FinalCapital)},
		{"📈 Total Return", fmt.Sprintf("%.2f%%", m.TotalReturn*100)},
		{"📈 Annualized Return", fmt.Sprintf("%.2f%%", m.AnnualizedReturn*100)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown*100)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"📊 Sortino Ratio", fmt.Sprintf("%.2f", m.SortinoRatio)},
		{"📊 Calmar Ratio", fmt.Sprintf("%.2f", m.CalmarRatio)},
		{"💹 Profit Factor", formatProfitFactor(m.ProfitFactor)},
		{"📉 VaR (95%)", fmt.Sprintf("%.2f%%", m.ValueAtRisk*100)},
		{"📉 CVaR (95%)", fmt.Sprintf("%.2f%%", m.ConditionalVaR*100)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"✅ Winning Trades", fmt.Sprintf("%d (%.1f%%)", m.WinningTrades, m.WinRate*100)},
		{"❌ Losing Trades", fmt.Sprintf("%d", m.LosingTrades)},
		{"🔥 Longest Win Streak", fmt.Sprintf("%d", m.LongestWinStreak)},
		{"🧊 Longest Loss Streak", fmt.Sprintf("%d", m.LongestLossStreak)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	if len(result.Diagnostics) > 0 {
		fmt.Printf("⚠️  %d diagnostics recorded during the run (skipped bars, rejected signals)\n\n", len(result.Diagnostics))
	}
}

// OutputWalkForward prints the per-window table and the aggregate
func (r *DefaultConsoleReporter) OutputWalkForward(result *backtest.WalkForwardResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("WALK-FORWARD WINDOWS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Test Range", "Best Params", "Train Score", "Test Return", "Test Sharpe"})

	for i, wr := range result.Windows {
		if wr.Err != nil {
			t.AppendRow(table.Row{i + 1, fmt.Sprintf("[%d, %d)", wr.Window.TestStart, wr.Window.TestEnd), "—", "—", "FAILED", wr.Err.Error()})
			continue
		}
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("[%d, %d)", wr.Window.TestStart, wr.Window.TestEnd),
			wr.BestParams.String(),
			fmt.Sprintf("%.3f", wr.TrainScore),
			fmt.Sprintf("%.2f%%", wr.Test.Metrics.TotalReturn*100),
			fmt.Sprintf("%.2f", wr.Test.Metrics.SharpeRatio),
		})
	}
	t.Render()
	fmt.Println()

	agg := result.Aggregate
	s := table.NewWriter()
	s.SetOutputMirror(os.Stdout)
	s.SetTitle("WALK-FORWARD SUMMARY")
	s.SetStyle(table.StyleRounded)
	s.AppendRows([]table.Row{
		{"🪟 Windows", fmt.Sprintf("%d (%d failed)", agg.Windows, agg.FailedWindows)},
		{"📈 Mean / Median Return", fmt.Sprintf("%.2f%% / %.2f%%", agg.MeanReturn*100, agg.MedianReturn*100)},
		{"📈 Best / Worst Return", fmt.Sprintf("%.2f%% / %.2f%%", agg.BestReturn*100, agg.WorstReturn*100)},
		{"📊 Mean / Median Sharpe", fmt.Sprintf("%.2f / %.2f", agg.MeanSharpe, agg.MedianSharpe)},
		{"📊 Best / Worst Sharpe", fmt.Sprintf("%.2f / %.2f", agg.BestSharpe, agg.WorstSharpe)},
		{"🎯 Consistency Score", fmt.Sprintf("%.2f", agg.ConsistencyScore)},
	})
	s.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 24, WidthMax: 24, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})
	s.Render()
	fmt.Println()

	if agg.ConsistencyScore >= 0.5 {
		fmt.Println("✅ ROBUST STRATEGY - windows agree with each other")
	} else {
		fmt.Println("⚠️  INCONSISTENT RESULTS - out-of-sample windows disagree")
	}
}

// OutputMonteCarlo prints the resampled distribution summary
func (r *DefaultConsoleReporter) OutputMonteCarlo(result *backtest.MonteCarloResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("MONTE CARLO (%d trials, %d source trades)", result.Trials, result.SourceTrades))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Mean", "Median", "P5", "P95"})

	t.AppendRows([]table.Row{
		distributionRow("📈 Final Return", result.Return, true),
		distributionRow("📉 Max Drawdown", result.Drawdown, true),
		distributionRow("📊 Sharpe", result.Sharpe, false),
	})
	t.Render()

	fmt.Printf("\n🎲 Probability of Loss: %.1f%%\n\n", result.ProbabilityOfLoss*100)
}

func distributionRow(label string, d backtest.MetricDistribution, percent bool) table.Row {
	format := func(v float64) string {
		if percent {
			return fmt.Sprintf("%.2f%%", v*100)
		}
		return fmt.Sprintf("%.2f", v)
	}
	return table.Row{label, format(d.Mean), format(d.Median), format(d.P5), format(d.P95)}
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞ (no losing trades)"
	}
	return fmt.Sprintf("%.2f", pf)
}
