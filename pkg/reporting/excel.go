package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/quantlab/strategy-backtest/internal/backtest"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// ExcelStyles holds the workbook formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
	WinStyle      int
	LossStyle     int
}

// WriteWorkbook writes a three-sheet workbook: headline metrics, the
// full trade list and the equity curve.
func (r *DefaultExcelReporter) WriteWorkbook(result *backtest.Result, path string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity Curve"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(tradesSheet)
	fx.NewSheet(equitySheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// createStyles creates the workbook styles
func (r *DefaultExcelReporter) createStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - dark background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// Currency style (right aligned, $ format)
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	// Percentage style (right aligned, % format)
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	// Base style for plain cells
	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "left",
		},
	})
	if err != nil {
		return styles, err
	}

	// Green for winners
	styles.WinStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006400"},
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	// Red for losers
	styles.LossStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "8B0000"},
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *backtest.Result, styles ExcelStyles) error {
	m := result.Metrics

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Period Start", result.Period.Start.Format("2006-01-02"), styles.BaseStyle},
		{"Period End", result.Period.End.Format("2006-01-02"), styles.BaseStyle},
		{"Initial Capital", result.InitialCapital, styles.CurrencyStyle},
		{"Final Capital", result.FinalCapital, styles.CurrencyStyle},
		{"Total Return", m.TotalReturn, styles.PercentStyle},
		{"Annualized Return", m.AnnualizedReturn, styles.PercentStyle},
		{"Max Drawdown", m.MaxDrawdown, styles.PercentStyle},
		{"Sharpe Ratio", m.SharpeRatio, styles.BaseStyle},
		{"Sortino Ratio", m.SortinoRatio, styles.BaseStyle},
		{"Calmar Ratio", m.CalmarRatio, styles.BaseStyle},
		{"Profit Factor", formatProfitFactor(m.ProfitFactor), styles.BaseStyle},
		{"Win Rate", m.WinRate, styles.PercentStyle},
		{"Total Trades", m.TotalTrades, styles.BaseStyle},
		{"VaR (95%)", m.ValueAtRisk, styles.PercentStyle},
		{"CVaR (95%)", m.ConditionalVaR, styles.PercentStyle},
		{"Longest Win Streak", m.LongestWinStreak, styles.BaseStyle},
		{"Longest Loss Streak", m.LongestLossStreak, styles.BaseStyle},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle); err != nil {
		return err
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+2)
		valueCell := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, valueCell, valueCell, row.style); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 22)
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.Result, styles ExcelStyles) error {
	headers := []string{"ID", "Symbol", "Direction", "Entry Time", "Exit Time", "Entry Price", "Exit Price", "Quantity", "Commission", "PnL", "Return", "Exit Reason"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle); err != nil {
			return err
		}
	}

	for rowIdx, p := range result.Trades {
		values := []interface{}{
			p.ID,
			p.Symbol,
			p.Direction.String(),
			p.EntryTimestamp.Format("2006-01-02 15:04:05"),
			p.ExitTimestamp.Format("2006-01-02 15:04:05"),
			p.EntryPrice,
			p.ExitPrice,
			p.Quantity,
			p.CommissionPaid,
			p.RealizedPnL,
			p.Return(),
			string(p.ExitReason),
		}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}

		// Color the PnL cell by outcome
		pnlCell, err := excelize.CoordinatesToCellName(10, rowIdx+2)
		if err != nil {
			return err
		}
		pnlStyle := styles.WinStyle
		if p.RealizedPnL < 0 {
			pnlStyle = styles.LossStyle
		}
		if err := fx.SetCellStyle(sheet, pnlCell, pnlCell, pnlStyle); err != nil {
			return err
		}

		returnCell, err := excelize.CoordinatesToCellName(11, rowIdx+2)
		if err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, returnCell, returnCell, styles.PercentStyle); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "L", 18)
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, result *backtest.Result, styles ExcelStyles) error {
	if err := fx.SetCellValue(sheet, "A1", "Timestamp"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Equity"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle); err != nil {
		return err
	}

	for i, point := range result.EquityCurve {
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), point.Timestamp.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		cell := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, cell, point.Equity); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 22)
}
