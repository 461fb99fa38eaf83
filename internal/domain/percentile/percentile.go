// Package percentile estimates quantiles from fixed-boundary latency histograms.
package percentile

import (
	"fmt"
	"math"
)

// p99 is the quantile reported as tail latency.
const p99 = 0.99

// DefaultBoundaries are the upper bounds, in milliseconds, of the 13 report buckets.
var DefaultBoundaries = []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, math.Inf(1)} //nolint:gochecknoglobals // fixed wire contract

// Estimate returns the q-quantile of the histogram by linear interpolation
// inside the bucket where the cumulative count first reaches q*total.
//
// An empty histogram yields 0. A quantile landing in the first bucket yields
// boundaries[0] with no interpolation below it.
func Estimate(buckets []int64, boundaries []float64, q float64) (float64, error) {
	if len(buckets) != len(boundaries) {
		return 0, fmt.Errorf("%w: %d buckets, %d boundaries", ErrLengthMismatch, len(buckets), len(boundaries))
	}
	if !(q > 0 && q <= 1) {
		return 0, fmt.Errorf("%w: %v", ErrQuantileRange, q)
	}

	var total int64
	for _, c := range buckets {
		total += c
	}
	if total == 0 {
		return 0, nil
	}

	target := float64(total) * q
	var cumulative int64
	for i, count := range buckets {
		cumulative += count
		if float64(cumulative) < target {
			continue
		}
		if i == 0 {
			return boundaries[0], nil
		}
		before := float64(cumulative - count)
		ratio := (target - before) / float64(count)
		lower, upper := boundaries[i-1], boundaries[i]
		return lower + ratio*(upper-lower), nil
	}

	// Unreachable with consistent inputs.
	if len(boundaries) < 2 {
		return boundaries[0], nil
	}
	return boundaries[len(boundaries)-2], nil
}

// P99 estimates the 99th percentile with DefaultBoundaries.
func P99(buckets []int64) (float64, error) {
	return Estimate(buckets, DefaultBoundaries, p99)
}
