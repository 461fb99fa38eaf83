// Package aggregate turns one report's raw counters and histograms into a
// normalized metrics summary.
package aggregate

import (
	"math"

	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/internal/domain/percentile"
)

// Source records which rule produced a resolved value.
type Source int

// Resolution outcomes, in precedence order.
const (
	// SourcePresent means the client supplied the value directly.
	SourcePresent Source = iota
	// SourceLegacy means the value was taken from the latency histogram section.
	SourceLegacy
	// SourceZero means no usable input existed.
	SourceZero
)

func (s Source) String() string {
	switch s {
	case SourcePresent:
		return "present"
	case SourceLegacy:
		return "legacy"
	default:
		return "zero"
	}
}

// Resolved is a field value tagged with the rule that produced it.
type Resolved struct {
	Value  float64
	Source Source
}

// ResolveAvgLatency applies: totalAvgLatency, then the histogram's reported
// average when the histogram is non-empty, then zero.
func ResolveAvgLatency(s model.Stats) Resolved {
	if s.TotalAvgLatency != nil {
		return Resolved{Value: *s.TotalAvgLatency, Source: SourcePresent}
	}
	if ld := s.LatencyAnalysis.SensorData; ld != nil && sum(ld.Buckets) > 0 {
		return Resolved{Value: ld.Avg, Source: SourceLegacy}
	}
	return Resolved{Source: SourceZero}
}

// ResolveHighPriorityLatency applies: highPriorityAvgDelayLatency, then the
// histogram's high-priority average when both it and the count are non-zero,
// then zero.
func ResolveHighPriorityLatency(s model.Stats) Resolved {
	if s.HighPriorityAvgDelay != nil {
		return Resolved{Value: *s.HighPriorityAvgDelay, Source: SourcePresent}
	}
	ld := s.LatencyAnalysis.SensorData
	if ld != nil && ld.HighPriorityAvg != nil && ld.HighPriorityCount != nil &&
		*ld.HighPriorityAvg != 0 && *ld.HighPriorityCount != 0 {
		return Resolved{Value: *ld.HighPriorityAvg, Source: SourceLegacy}
	}
	return Resolved{Source: SourceZero}
}

// DataLossRate is the percentage of sent requests neither completed nor
// pending. Over-counting is floored at zero.
func DataLossRate(s model.Stats) float64 {
	if s.TotalSent == 0 {
		return 0
	}
	lost := s.TotalSent - s.TotalOps - s.Pending
	if lost <= 0 {
		return 0
	}
	return float64(lost) / float64(s.TotalSent) * 100
}

// Overcounted reports whether completed plus pending exceeds sent.
func Overcounted(s model.Stats) bool {
	return s.TotalOps+s.Pending > s.TotalSent
}

// P99Latency estimates the tail latency of the primary histogram. A missing
// or malformed histogram yields 0; an estimate in the open-ended bucket is
// reported as the last finite boundary so it stays representable in JSON.
func P99Latency(s model.Stats) float64 {
	v, err := percentile.P99(s.SensorBuckets())
	if err != nil {
		return 0
	}
	if math.IsInf(v, 1) {
		return percentile.DefaultBoundaries[len(percentile.DefaultBoundaries)-2]
	}
	return v
}

// Aggregate computes the metrics summary of one report.
func Aggregate(s model.Stats) model.MetricsSummary {
	return model.MetricsSummary{
		AvgLatency:             ResolveAvgLatency(s).Value,
		P99Latency:             P99Latency(s),
		HighPriorityAvgLatency: ResolveHighPriorityLatency(s).Value,
		DataLossRate:           DataLossRate(s),
	}
}

func sum(buckets []int64) int64 {
	var total int64
	for _, b := range buckets {
		total += b
	}
	return total
}
