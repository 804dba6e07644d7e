package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns the default output directory for a run
// mode, timestamped so repeated runs never overwrite each other.
func (p *DefaultPathManager) GetDefaultOutputDir(mode string) string {
	m := strings.ToLower(strings.TrimSpace(mode))
	if m == "" {
		m = "backtest"
	}

	return filepath.Join("results", fmt.Sprintf("%s_%s", m, time.Now().Format("20060102_150405")))
}

// EnsureDirectoryExists creates the directory if it doesn't exist
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	return os.MkdirAll(path, 0755)
}
