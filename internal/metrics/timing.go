// Package metrics measures the latency of pipeline stages.
package metrics

import "time"

// Measure runs fn and reports how long it took alongside its result.
// The duration is taken from the monotonic clock and is never negative.
func Measure[T any](fn func() (T, error)) (T, time.Duration, error) {
	start := time.Now()
	result, err := fn()
	return result, Since(start), err
}

// Since returns the elapsed time since start, clamped at zero.
func Since(start time.Time) time.Duration {
	d := time.Since(start)
	if d < 0 {
		return 0
	}
	return d
}
