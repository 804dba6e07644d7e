package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/quantlab/strategy-backtest/internal/backtest"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes the closed trade list to a CSV file
func (r *DefaultCSVReporter) WriteTradesCSV(result *backtest.Result, path string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"ID",
		"Symbol",
		"Direction",
		"Entry_Time",
		"Exit_Time",
		"Entry_Price",
		"Exit_Price",
		"Quantity",
		"Commission_$",
		"PnL_$",
		"Return_%",
		"Exit_Reason",
		"Win_Loss",
	}); err != nil {
		return err
	}

	var totalPnL, totalCommission float64
	for _, p := range result.Trades {
		totalPnL += p.RealizedPnL
		totalCommission += p.CommissionPaid

		winLoss := "W"
		if p.RealizedPnL < 0 {
			winLoss = "L"
		}

		row := []string{
			strconv.Itoa(p.ID),
			p.Symbol,
			p.Direction.String(),
			p.EntryTimestamp.Format("2006-01-02 15:04:05"),
			p.ExitTimestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.8f", p.EntryPrice),
			fmt.Sprintf("%.8f", p.ExitPrice),
			fmt.Sprintf("%.8f", p.Quantity),
			fmt.Sprintf("%.2f", p.CommissionPaid),
			fmt.Sprintf("%.2f", p.RealizedPnL),
			fmt.Sprintf("%.2f", p.Return()*100),
			string(p.ExitReason),
			winLoss,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("SUMMARY: total_pnl=$%.2f; total_commission=$%.2f; total_trades=%d",
		totalPnL, totalCommission, len(result.Trades))
	summaryRow := make([]string, 13)
	summaryRow[12] = summary
	return w.Write(summaryRow)
}

// WriteEquityCSV writes the per-bar equity curve to a CSV file
func (r *DefaultCSVReporter) WriteEquityCSV(result *backtest.Result, path string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Timestamp", "Equity"}); err != nil {
		return err
	}

	for _, point := range result.EquityCurve {
		row := []string{
			point.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2f", point.Equity),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func ensureParentDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// Package-level convenience function
func WriteTradesCSV(result *backtest.Result, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(result, path)
}
