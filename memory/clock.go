package memory

import "time"

// clockEpoch is the reference point monotonicNanos measures from.
var clockEpoch = time.Now()

// monotonicNanos is the default clock used to time events in
// InstrumentingMemoryResource. It reads Go's monotonic clock, so the
// difference of two readings is never negative.
func monotonicNanos() int64 {
	return int64(time.Since(clockEpoch))
}
