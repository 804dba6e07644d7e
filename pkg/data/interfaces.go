package data

import (
	"time"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// Provider interface for loading historical bars from various sources
type Provider interface {
	// LoadBars loads the bar series for one symbol from the specified source
	LoadBars(source, symbol string) ([]types.Bar, error)

	// ValidateBars validates the integrity of a loaded series
	ValidateBars(bars []types.Bar) error

	// GetName returns the name of the provider
	GetName() string
}

// Cache interface for caching loaded series
type Cache interface {
	// Get retrieves a series from cache if available
	Get(key string) ([]types.Bar, bool)

	// Set stores a series in cache
	Set(key string, bars []types.Bar)

	// Clear removes all cached series
	Clear()

	// Size returns the number of cached entries
	Size() int
}

// Filter interface for filtering and normalizing series
type Filter interface {
	// FilterByDateRange keeps bars inside [start, end] inclusive
	FilterByDateRange(bars []types.Bar, start, end time.Time) []types.Bar

	// FilterByPeriod keeps the trailing period of the series
	FilterByPeriod(bars []types.Bar, period time.Duration) []types.Bar

	// ValidateTimeSequence ensures bars are in strict chronological order
	ValidateTimeSequence(bars []types.Bar) error
}

// FileLocator interface for finding data files on disk
type FileLocator interface {
	// FindDataFile attempts to locate the bar file for a symbol and
	// interval. Returns empty string if no file is found.
	FindDataFile(dataRoot, symbol, interval string) string
}

// ColumnMapping defines the column positions for different CSV layouts
type ColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV layouts
var (
	// DefaultCSVFormat matches the common
	// "timestamp,open,high,low,close,volume" layout with datetime
	// timestamps.
	DefaultCSVFormat = ColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// DailyCSVFormat is the same layout with date-only timestamps, the
	// usual shape of end-of-day equity data.
	DailyCSVFormat = ColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02",
	}
)
