package usecase

import (
	"fmt"
	"time"
)

// OutputPath returns the destination for one symbol's response:
// <prefix>_<month>.<day>.<year>_<symbol>, using the unmodified calendar date without padding.
// Re-running with the same inputs yields the same path, so earlier output is overwritten.
func OutputPath(prefix string, date time.Time, symbol string) string {
	return fmt.Sprintf("%s_%d.%d.%d_%s", prefix, int(date.Month()), date.Day(), date.Year(), symbol)
}
