// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// BucketCount is the number of latency histogram buckets in a report.
const BucketCount = 13

// Report is one immutable benchmark submission as stored in a team archive.
type Report struct {
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	SubmittedAt time.Time `json:"timestamp"`
	Stats       Stats     `json:"stats"`
}

// Stats is the body a benchmark client posts for one run.
type Stats struct {
	TotalElapsed         float64  `json:"totalElapsed"`
	TotalSent            int64    `json:"totalSent"`
	TotalOps             int64    `json:"totalOps"`
	TotalErrors          int64    `json:"totalErrors"`
	TotalSaveDelayErrors int64    `json:"totalSaveDelayErrors"`
	TotalAvgLatency      *float64 `json:"totalAvgLatency,omitempty"`
	HighPriorityAvgDelay *float64 `json:"highPriorityAvgDelayLatency,omitempty"`
	TotalVerifyErrorRate *float64 `json:"totalVerifyErrorRate,omitempty"`
	Pending              int64    `json:"pending"`

	Operations         Operations         `json:"operations"`
	HighPriorityStats  HighPriorityStats  `json:"highPriorityStats"`
	PerformanceMetrics PerformanceMetrics `json:"performanceMetrics"`
	LatencyAnalysis    LatencyAnalysis    `json:"latencyAnalysis"`
}

// Operations holds per-operation counters.
type Operations struct {
	SensorData *OperationStat `json:"sensorData,omitempty"`
}

// OperationStat counts operations and errors of one kind.
type OperationStat struct {
	Operations int64 `json:"operations"`
	Errors     int64 `json:"errors"`
}

// HighPriorityStats describes the high-priority share of a run.
type HighPriorityStats struct {
	SensorDataCount int64   `json:"sensorDataCount"`
	TotalCount      int64   `json:"totalCount"`
	Percentage      float64 `json:"percentage"`
}

// PerformanceMetrics carries client-side throughput figures.
type PerformanceMetrics struct {
	AvgSentQPS      float64 `json:"avgSentQPS"`
	AvgCompletedQPS float64 `json:"avgCompletedQPS"`
	ErrorRate       float64 `json:"errorRate"`
}

// LatencyAnalysis holds latency distributions per operation.
type LatencyAnalysis struct {
	SensorData *LatencyDistribution `json:"sensorData,omitempty"`
}

// LatencyDistribution is a fixed-boundary histogram plus summary figures,
// with an optional high-priority sub-histogram.
type LatencyDistribution struct {
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Buckets []int64 `json:"buckets"`

	HighPriorityCount   *int64   `json:"highPriorityCount,omitempty"`
	HighPriorityAvg     *float64 `json:"highPriorityAvg,omitempty"`
	HighPriorityMin     *float64 `json:"highPriorityMin,omitempty"`
	HighPriorityMax     *float64 `json:"highPriorityMax,omitempty"`
	HighPriorityBuckets []int64  `json:"highPriorityBuckets,omitempty"`
}

// CompletedQPS returns the throughput used for best-record tracking.
func (s Stats) CompletedQPS() float64 { return s.PerformanceMetrics.AvgCompletedQPS }

// SensorBuckets returns the primary latency histogram, or nil when absent.
func (s Stats) SensorBuckets() []int64 {
	if s.LatencyAnalysis.SensorData == nil {
		return nil
	}
	return s.LatencyAnalysis.SensorData.Buckets
}

// Validate checks the structural rules a report body must satisfy before it
// reaches the core. Errors wrap ErrValidation and name the offending field.
func (s Stats) Validate() error {
	counters := []struct {
		name string
		v    int64
	}{
		{"totalSent", s.TotalSent},
		{"totalOps", s.TotalOps},
		{"totalErrors", s.TotalErrors},
		{"totalSaveDelayErrors", s.TotalSaveDelayErrors},
		{"pending", s.Pending},
	}
	for _, c := range counters {
		if c.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, c.name)
		}
	}
	if s.TotalElapsed < 0 {
		return fmt.Errorf("%w: totalElapsed must not be negative", ErrValidation)
	}
	if s.Operations.SensorData == nil {
		return fmt.Errorf("%w: operations.sensorData is required", ErrValidation)
	}
	ld := s.LatencyAnalysis.SensorData
	if ld == nil {
		return fmt.Errorf("%w: latencyAnalysis.sensorData is required", ErrValidation)
	}
	if err := validateBuckets("latencyAnalysis.sensorData.buckets", ld.Buckets); err != nil {
		return err
	}
	if ld.HighPriorityBuckets != nil {
		if err := validateBuckets("latencyAnalysis.sensorData.highPriorityBuckets", ld.HighPriorityBuckets); err != nil {
			return err
		}
	}
	if ld.HighPriorityCount != nil && *ld.HighPriorityCount < 0 {
		return fmt.Errorf("%w: latencyAnalysis.sensorData.highPriorityCount must not be negative", ErrValidation)
	}
	return nil
}

func validateBuckets(field string, buckets []int64) error {
	if len(buckets) != BucketCount {
		return fmt.Errorf("%w: %s must have %d entries, got %d", ErrValidation, field, BucketCount, len(buckets))
	}
	for i, b := range buckets {
		if b < 0 {
			return fmt.Errorf("%w: %s[%d] must not be negative", ErrValidation, field, i)
		}
	}
	return nil
}
