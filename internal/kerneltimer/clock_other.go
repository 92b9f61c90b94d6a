//go:build !linux

package kerneltimer

import "time"

var monotonicEpoch = time.Now()

// Now returns a monotonic nanosecond count from an arbitrary process-local
// epoch, derived from time.Since's monotonic reading rather than wall-clock
// time so it stays strictly non-decreasing across clock adjustments.
func Now() int64 {
	return int64(time.Since(monotonicEpoch))
}
