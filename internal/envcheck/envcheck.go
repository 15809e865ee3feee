// Package envcheck validates the data environment before index load:
// required directories and files must exist, be non-empty and be
// fresher than the staleness threshold.
package envcheck

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// MaxStaleness is how old a required data file may be before startup
// is refused. The build pipeline refreshes files well inside this.
const MaxStaleness = 4 * 7 * 24 * time.Hour

// Check describes one environment requirement.
type Check struct {
	Path string
	Dir  bool
	// WarnOnly requirements log a warning instead of failing the run.
	WarnOnly bool
}

// Validate runs every check against the filesystem. The first failed
// required check aborts with a descriptive error; warn-only failures
// are logged and skipped.
func Validate(checks []Check, now time.Time) error {
	for _, c := range checks {
		if err := validateOne(c, now); err != nil {
			if c.WarnOnly {
				slog.Warn("environment check failed, continuing", "path", c.Path, "error", err)
				continue
			}
			return fmt.Errorf("environment validation failed: %w", err)
		}
	}
	return nil
}

func validateOne(c Check, now time.Time) error {
	info, err := os.Stat(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s is missing", c.Path)
		}
		return fmt.Errorf("cannot stat %s: %w", c.Path, err)
	}
	if c.Dir {
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", c.Path)
		}
		return nil
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file", c.Path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", c.Path)
	}
	if age := now.Sub(info.ModTime()); age > MaxStaleness {
		return fmt.Errorf("%s is stale: last updated %s ago (limit %s)",
			filepath.Base(c.Path), age.Round(time.Hour), MaxStaleness)
	}
	return nil
}
