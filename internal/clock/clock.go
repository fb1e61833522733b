package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// ElapsedMs returns milliseconds elapsed since start according to NowFunc.
func ElapsedMs(start time.Time) int64 {
	if start.IsZero() {
		return 0
	}
	return Now().Sub(start).Milliseconds()
}
