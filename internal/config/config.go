// Package config holds the engine configuration surface and its
// fail-fast validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the full configuration for one simulation run. All fields
// have working defaults from Default(); zero values are not usable.
type Config struct {
	Symbols   []string  `json:"symbols"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	InitialCapital     float64 `json:"initial_capital"`
	CommissionRate     float64 `json:"commission_rate"`
	SlippageRate       float64 `json:"slippage_rate"`
	MaxOpenPositions   int     `json:"max_open_positions"`
	StopLossFraction   float64 `json:"stop_loss_fraction"`
	TakeProfitFraction float64 `json:"take_profit_fraction"`
	PositionFraction   float64 `json:"position_fraction"`

	ConfidenceFloor float64 `json:"confidence_floor"`
	MinHistory      int     `json:"min_history"`

	RiskFreeRate        float64 `json:"risk_free_rate"`
	AnnualizationFactor float64 `json:"annualization_factor"`
	ConfidenceLevel     float64 `json:"confidence_level"`

	TrainingWindow int `json:"training_window"`
	TestingWindow  int `json:"testing_window"`
	StepSize       int `json:"step_size"`

	MonteCarloTrials int   `json:"monte_carlo_trials"`
	RandomSeed       int64 `json:"random_seed"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		InitialCapital:      100000,
		CommissionRate:      0.001,
		SlippageRate:        0.0005,
		MaxOpenPositions:    5,
		StopLossFraction:    0.05,
		TakeProfitFraction:  0.10,
		PositionFraction:    0.10,
		ConfidenceFloor:     0.6,
		MinHistory:          30,
		RiskFreeRate:        0.02,
		AnnualizationFactor: 252,
		ConfidenceLevel:     0.95,
		TrainingWindow:      60,
		TestingWindow:       20,
		StepSize:            20,
		MonteCarloTrials:    1000,
		RandomSeed:          42,
	}
}

// Validate checks the configuration before any simulation starts. Every
// violation here is a caller error, never something the simulator tries
// to work around mid-run.
func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: empty symbol list")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("config: end date %s is not after start date %s",
			c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("config: initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("config: commission rate %v out of range [0, 1)", c.CommissionRate)
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return fmt.Errorf("config: slippage rate %v out of range [0, 1)", c.SlippageRate)
	}
	if c.MaxOpenPositions <= 0 {
		return fmt.Errorf("config: max open positions must be positive, got %d", c.MaxOpenPositions)
	}
	if c.StopLossFraction <= 0 || c.StopLossFraction >= 1 {
		return fmt.Errorf("config: stop loss fraction %v out of range (0, 1)", c.StopLossFraction)
	}
	if c.TakeProfitFraction <= 0 {
		return fmt.Errorf("config: take profit fraction must be positive, got %v", c.TakeProfitFraction)
	}
	if c.PositionFraction <= 0 || c.PositionFraction > 1 {
		return fmt.Errorf("config: position fraction %v out of range (0, 1]", c.PositionFraction)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("config: confidence floor %v out of range [0, 1]", c.ConfidenceFloor)
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("config: annualization factor must be positive, got %v", c.AnnualizationFactor)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return fmt.Errorf("config: confidence level %v out of range (0, 1)", c.ConfidenceLevel)
	}
	if c.TrainingWindow <= 0 || c.TestingWindow <= 0 || c.StepSize <= 0 {
		return fmt.Errorf("config: walk-forward windows must be positive (train=%d test=%d step=%d)",
			c.TrainingWindow, c.TestingWindow, c.StepSize)
	}
	if c.MonteCarloTrials <= 0 {
		return fmt.Errorf("config: monte carlo trials must be positive, got %d", c.MonteCarloTrials)
	}
	return nil
}

// Load reads a JSON config file on top of the defaults, so partial files
// only override what they mention.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
