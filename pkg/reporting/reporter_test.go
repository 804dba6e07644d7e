package reporting

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/quantlab/strategy-backtest/internal/backtest"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

func sampleResult() *backtest.Result {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := []*backtest.Position{
		{
			ID: 1, Symbol: "AAPL", Direction: types.Long,
			EntryPrice: 185, Quantity: 54, EntryTimestamp: start,
			Closed: true, ExitPrice: 203.5, ExitTimestamp: start.AddDate(0, 0, 12),
			ExitReason: backtest.ExitTakeProfit, CommissionPaid: 20.9, RealizedPnL: 978.1,
		},
		{
			ID: 2, Symbol: "MSFT", Direction: types.Short,
			EntryPrice: 400, Quantity: 25, EntryTimestamp: start.AddDate(0, 0, 3),
			Closed: true, ExitPrice: 420, ExitTimestamp: start.AddDate(0, 0, 9),
			ExitReason: backtest.ExitStopLoss, CommissionPaid: 20.5, RealizedPnL: -520.5,
		},
	}

	curve := []backtest.EquityPoint{
		{Timestamp: start, Equity: 100000},
		{Timestamp: start.AddDate(0, 0, 9), Equity: 99479.5},
		{Timestamp: start.AddDate(0, 0, 12), Equity: 100457.6},
	}

	return &backtest.Result{
		Period:         backtest.Period{Start: start, End: start.AddDate(0, 0, 12)},
		InitialCapital: 100000,
		FinalCapital:   100457.6,
		Trades:         trades,
		EquityCurve:    curve,
		MaxDrawdown:    backtest.RecomputeMaxDrawdown(curve),
		Metrics: backtest.ComputeMetrics(trades, curve, 100000, backtest.MetricOptions{
			AnnualizationFactor: 252,
			ConfidenceLevel:     0.95,
		}),
	}
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.csv")
	require.NoError(t, NewDefaultCSVReporter().WriteTradesCSV(sampleResult(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Header + 2 trades + summary row.
	require.Len(t, rows, 4)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "AAPL", rows[1][1])
	assert.Equal(t, "LONG", rows[1][2])
	assert.Equal(t, "take_profit", rows[1][11])
	assert.Equal(t, "W", rows[1][12])
	assert.Equal(t, "L", rows[2][12])
	assert.Contains(t, rows[3][12], "total_trades=2")
}

func TestWriteEquityCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equity.csv")
	require.NoError(t, NewDefaultCSVReporter().WriteEquityCSV(sampleResult(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Timestamp", "Equity"}, rows[0])
	assert.Equal(t, "100000.00", rows[1][1])
}

func TestWriteResultJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, NewDefaultJSONFormatter().WriteResultJSON(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, 100000.0, decoded["initial_capital"])
	assert.Equal(t, 100457.6, decoded["final_capital"])
	assert.Equal(t, 2.0, decoded["total_trades"])
	assert.NotNil(t, decoded["profit_factor"])
}

func TestWriteBestParamsJSON(t *testing.T) {
	result := &backtest.WalkForwardResult{
		Windows: []backtest.WindowResult{
			{
				Window:     backtest.Window{TestStart: 60, TestEnd: 80},
				BestParams: backtest.ParamSet{"stop_loss_fraction": 0.03},
				TrainScore: 1.2,
				Test:       sampleResult(),
			},
		},
	}

	path := filepath.Join(t.TempDir(), "best_params.json")
	require.NoError(t, NewDefaultJSONFormatter().WriteBestParamsJSON(result, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded bestParamsFile
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Windows, 1)
	assert.Equal(t, 60, decoded.Windows[0].TestStart)
	assert.InDelta(t, 0.03, decoded.Windows[0].Params["stop_loss_fraction"], 1e-12)
	assert.Empty(t, decoded.Windows[0].Error)
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewDefaultExcelReporter().WriteWorkbook(sampleResult(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.ElementsMatch(t, []string{"Summary", "Trades", "Equity Curve"}, fx.GetSheetList())

	symbol, err := fx.GetCellValue("Trades", "B2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)
}

func TestManager_ReportResult(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(Config{
		EnableFiles:     true,
		OutputDirectory: dir,
		CSVEnabled:      true,
		JSONEnabled:     true,
	})

	require.NoError(t, manager.ReportResult(sampleResult(), "single"))

	for _, name := range []string{"trades.csv", "equity.csv", "summary.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	// Excel disabled, so no workbook.
	_, err := os.Stat(filepath.Join(dir, "report.xlsx"))
	assert.True(t, os.IsNotExist(err))
}
