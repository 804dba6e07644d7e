package data

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileLocator implements FileLocator for the standard on-disk layout
type DefaultFileLocator struct{}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// FindDataFile attempts to locate the bar file for a symbol.
// Layouts tried, in order:
//
//	{dataRoot}/{SYMBOL}/{interval}/bars.csv
//	{dataRoot}/{SYMBOL}_{interval}.csv
//	{dataRoot}/{SYMBOL}.csv
//
// Returns empty string if no file is found.
func (f *DefaultFileLocator) FindDataFile(dataRoot, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)

	candidates := []string{
		filepath.Join(dataRoot, symbol, interval, "bars.csv"),
		filepath.Join(dataRoot, fmt.Sprintf("%s_%s.csv", symbol, interval)),
		filepath.Join(dataRoot, symbol+".csv"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	log.Printf("⚠️ No data file found for %s %s in:", symbol, interval)
	for _, path := range candidates {
		log.Printf("   - %s", path)
	}

	return ""
}
