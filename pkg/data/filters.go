package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// DefaultFilter implements Filter for common series operations
type DefaultFilter struct{}

// NewDefaultFilter creates a new default filter
func NewDefaultFilter() *DefaultFilter {
	return &DefaultFilter{}
}

// FilterByDateRange keeps bars inside [start, end] inclusive. A zero
// start or end leaves that side unbounded.
func (f *DefaultFilter) FilterByDateRange(bars []types.Bar, start, end time.Time) []types.Bar {
	if len(bars) == 0 {
		return bars
	}

	var filtered []types.Bar
	for _, bar := range bars {
		if !start.IsZero() && bar.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Timestamp.After(end) {
			continue
		}
		filtered = append(filtered, bar)
	}

	return filtered
}

// FilterByPeriod keeps the trailing period of the series, measured back
// from the latest bar.
func (f *DefaultFilter) FilterByPeriod(bars []types.Bar, period time.Duration) []types.Bar {
	if period <= 0 || len(bars) == 0 {
		return bars
	}

	cutoff := bars[len(bars)-1].Timestamp.Add(-period)
	startIdx := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Timestamp.Before(cutoff)
	})

	return bars[startIdx:]
}

// ValidateTimeSequence ensures bars are in strict chronological order
func (f *DefaultFilter) ValidateTimeSequence(bars []types.Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Before(bars[i-1].Timestamp) {
			return fmt.Errorf("bars not in chronological order at index %d: %s comes after %s",
				i, bars[i].Timestamp.Format(time.RFC3339), bars[i-1].Timestamp.Format(time.RFC3339))
		}
		if bars[i].Timestamp.Equal(bars[i-1].Timestamp) {
			return fmt.Errorf("duplicate timestamp at index %d: %s",
				i, bars[i].Timestamp.Format(time.RFC3339))
		}
	}

	return nil
}

// SortByTimestamp returns a copy of the series in ascending time order
func (f *DefaultFilter) SortByTimestamp(bars []types.Bar) []types.Bar {
	if len(bars) <= 1 {
		return bars
	}

	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return sorted
}

// RemoveDuplicates removes duplicate timestamps, keeping the first occurrence
func (f *DefaultFilter) RemoveDuplicates(bars []types.Bar) []types.Bar {
	if len(bars) <= 1 {
		return bars
	}

	var filtered []types.Bar
	seen := make(map[int64]bool)

	for _, bar := range bars {
		ts := bar.Timestamp.UnixNano()
		if !seen[ts] {
			seen[ts] = true
			filtered = append(filtered, bar)
		}
	}

	return filtered
}
