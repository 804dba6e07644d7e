package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// Manager combines provider, filter and locator behind one interface.
// It is the loading entry point the CLI uses: point it at a data root
// and a symbol list and get back the per-symbol series the simulator
// consumes.
type Manager struct {
	provider Provider
	filter   *DefaultFilter
	locator  FileLocator
}

// NewManager creates a manager with cached CSV loading and the default
// file layout.
func NewManager() *Manager {
	return &Manager{
		provider: NewCachedProvider(NewCSVProvider()),
		filter:   NewDefaultFilter(),
		locator:  NewDefaultFileLocator(),
	}
}

// NewManagerWithProvider creates a manager with a custom provider
func NewManagerWithProvider(provider Provider) *Manager {
	return &Manager{
		provider: provider,
		filter:   NewDefaultFilter(),
		locator:  NewDefaultFileLocator(),
	}
}

// LoadSymbol loads, de-duplicates and orders one symbol's series.
func (m *Manager) LoadSymbol(dataRoot, symbol, interval string) ([]types.Bar, error) {
	source := m.locator.FindDataFile(dataRoot, symbol, interval)
	if source == "" {
		return nil, fmt.Errorf("no data file for symbol %s (interval %s) under %s", symbol, interval, dataRoot)
	}

	bars, err := m.provider.LoadBars(source, symbol)
	if err != nil {
		return nil, err
	}

	bars = m.filter.SortByTimestamp(bars)
	bars = m.filter.RemoveDuplicates(bars)
	if err := m.filter.ValidateTimeSequence(bars); err != nil {
		return nil, fmt.Errorf("series for %s: %w", symbol, err)
	}
	return bars, nil
}

// LoadUniverse loads every symbol's series. Symbols trade on independent
// calendars, so differing lengths and gaps across symbols are expected
// and left untouched here.
func (m *Manager) LoadUniverse(dataRoot string, symbols []string, interval string) (map[string][]types.Bar, error) {
	universe := make(map[string][]types.Bar, len(symbols))
	for _, symbol := range symbols {
		bars, err := m.LoadSymbol(dataRoot, symbol, interval)
		if err != nil {
			return nil, err
		}
		universe[symbol] = bars
	}
	return universe, nil
}

// FilterByDateRange trims a loaded universe to [start, end] per symbol.
func (m *Manager) FilterByDateRange(universe map[string][]types.Bar, start, end time.Time) map[string][]types.Bar {
	filtered := make(map[string][]types.Bar, len(universe))
	for symbol, bars := range universe {
		filtered[symbol] = m.filter.FilterByDateRange(bars, start, end)
	}
	return filtered
}

// GetProvider returns the underlying provider
func (m *Manager) GetProvider() Provider {
	return m.provider
}

// ParseTrailingPeriod parses period strings like "7d", "30d", "180d"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		if nStr == "" {
			return 0, false
		}
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	// allow raw durations too (e.g., 168h)
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}
