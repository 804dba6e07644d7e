package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// CSVProvider implements Provider for CSV files, one file per symbol
type CSVProvider struct {
	format ColumnMapping
}

// NewCSVProvider creates a new CSV provider with the default format
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		format: DefaultCSVFormat,
	}
}

// NewCSVProviderWithFormat creates a new CSV provider with a custom format
func NewCSVProviderWithFormat(format ColumnMapping) *CSVProvider {
	return &CSVProvider{
		format: format,
	}
}

// GetName returns the name of the provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadBars loads the bar series for a symbol from a CSV file. Malformed
// rows are skipped with a warning rather than aborting the load; the
// simulator downstream decides what to do with odd-looking prices.
func (p *CSVProvider) LoadBars(source, symbol string) ([]types.Bar, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open data file for %s: %w", symbol, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read CSV header for %s: %w", symbol, err)
	}

	var bars []types.Bar

	lineNum := 1 // header already consumed
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		if len(record) < p.format.MinColumns {
			log.Printf("⚠️ Insufficient columns at line %d (expected %d, got %d), skipping", lineNum, p.format.MinColumns, len(record))
			continue
		}

		timestamp, err := p.parseTimestamp(record[p.format.TimestampCol])
		if err != nil {
			log.Printf("⚠️ Invalid timestamp '%s' at line %d, skipping: %v", record[p.format.TimestampCol], lineNum, err)
			continue
		}

		open, err := strconv.ParseFloat(record[p.format.OpenCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid open price '%s' at line %d, skipping: %v", record[p.format.OpenCol], lineNum, err)
			continue
		}

		high, err := strconv.ParseFloat(record[p.format.HighCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid high price '%s' at line %d, skipping: %v", record[p.format.HighCol], lineNum, err)
			continue
		}

		low, err := strconv.ParseFloat(record[p.format.LowCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid low price '%s' at line %d, skipping: %v", record[p.format.LowCol], lineNum, err)
			continue
		}

		closePrice, err := strconv.ParseFloat(record[p.format.CloseCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid close price '%s' at line %d, skipping: %v", record[p.format.CloseCol], lineNum, err)
			continue
		}

		volume, err := strconv.ParseFloat(record[p.format.VolumeCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid volume '%s' at line %d, skipping: %v", record[p.format.VolumeCol], lineNum, err)
			continue
		}

		bars = append(bars, types.Bar{
			Symbol:    symbol,
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}

	return bars, nil
}

// parseTimestamp accepts the configured layout plus unix seconds and
// milliseconds, which some exports use interchangeably.
func (p *CSVProvider) parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(p.format.DateFormat, raw); err == nil {
		return ts, nil
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if epoch > 1e12 {
			return time.UnixMilli(epoch).UTC(), nil
		}
		return time.Unix(epoch, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", raw)
}

// ValidateBars validates the integrity of a loaded series
func (p *CSVProvider) ValidateBars(bars []types.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("no bars provided")
	}

	for i, bar := range bars {
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return fmt.Errorf("invalid price data at index %d: prices must be positive", i)
		}

		if bar.High < bar.Low {
			return fmt.Errorf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)",
				i, bar.High, bar.Low)
		}

		if bar.High < bar.Open || bar.High < bar.Close {
			return fmt.Errorf("invalid price data at index %d: high (%.4f) must be >= open (%.4f) and close (%.4f)",
				i, bar.High, bar.Open, bar.Close)
		}

		if bar.Low > bar.Open || bar.Low > bar.Close {
			return fmt.Errorf("invalid price data at index %d: low (%.4f) must be <= open (%.4f) and close (%.4f)",
				i, bar.Low, bar.Open, bar.Close)
		}

		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must be strictly increasing", i)
		}
	}

	return nil
}
