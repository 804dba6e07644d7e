package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Symbols = []string{"AAPL", "MSFT"}
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_EmptySymbols(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.Validate(), "empty symbol list")
}

func TestValidate_InvertedDates(t *testing.T) {
	cfg := validConfig()
	cfg.StartDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.ErrorContains(t, cfg.Validate(), "not after start date")
}

func TestValidate_BadNumericRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }, "initial capital"},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.1 }, "commission rate"},
		{"slippage too large", func(c *Config) { c.SlippageRate = 1.0 }, "slippage rate"},
		{"zero positions", func(c *Config) { c.MaxOpenPositions = 0 }, "max open positions"},
		{"stop loss full", func(c *Config) { c.StopLossFraction = 1.0 }, "stop loss fraction"},
		{"zero take profit", func(c *Config) { c.TakeProfitFraction = 0 }, "take profit fraction"},
		{"position fraction", func(c *Config) { c.PositionFraction = 1.5 }, "position fraction"},
		{"confidence floor", func(c *Config) { c.ConfidenceFloor = 1.2 }, "confidence floor"},
		{"annualization", func(c *Config) { c.AnnualizationFactor = 0 }, "annualization factor"},
		{"confidence level", func(c *Config) { c.ConfidenceLevel = 1.0 }, "confidence level"},
		{"step size", func(c *Config) { c.StepSize = 0 }, "walk-forward windows"},
		{"trials", func(c *Config) { c.MonteCarloTrials = 0 }, "monte carlo trials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
