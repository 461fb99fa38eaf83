package model

import (
	"encoding/json"
	"time"
)

// MetricsSummary is the normalized view of one report.
type MetricsSummary struct {
	AvgLatency             float64 `json:"avgLatency"`
	P99Latency             float64 `json:"p99Latency"`
	HighPriorityAvgLatency float64 `json:"highPriorityAvgLatency"`
	DataLossRate           float64 `json:"dataLossRate"`
}

// BestRecords holds the best-ever QPS and lowest positive latency of a team.
// Absence is explicit: HasQPS and HasLatency are false until a qualifying
// observation is made.
type BestRecords struct {
	QPS        float64
	QPSAt      time.Time
	HasQPS     bool
	Latency    float64
	LatencyAt  time.Time
	HasLatency bool
}

type bestRecordsJSON struct {
	BestQPS       float64    `json:"bestQps"`
	BestQPSAt     *time.Time `json:"bestQpsAt"`
	BestLatency   *float64   `json:"bestLatency"`
	BestLatencyAt *time.Time `json:"bestLatencyAt"`
}

// MarshalJSON renders absent values as null.
func (b BestRecords) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.wire())
}

// UnmarshalJSON reverses MarshalJSON.
func (b *BestRecords) UnmarshalJSON(data []byte) error {
	var w bestRecordsJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = BestRecords{QPS: w.BestQPS}
	if w.BestQPSAt != nil {
		b.HasQPS = true
		b.QPSAt = *w.BestQPSAt
	}
	if w.BestLatency != nil {
		b.HasLatency = true
		b.Latency = *w.BestLatency
		if w.BestLatencyAt != nil {
			b.LatencyAt = *w.BestLatencyAt
		}
	}
	return nil
}

func (b BestRecords) wire() bestRecordsJSON {
	var w bestRecordsJSON
	if b.HasQPS {
		w.BestQPS = b.QPS
		at := b.QPSAt
		w.BestQPSAt = &at
	}
	if b.HasLatency {
		lat, at := b.Latency, b.LatencyAt
		w.BestLatency = &lat
		w.BestLatencyAt = &at
	}
	return w
}

// Fingerprint is an order-independent digest of an archive's file metadata.
type Fingerprint uint64

// RecordRef points at one archived report.
type RecordRef struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Locator   string    `json:"-"`
}

// CacheEntry is the cached best-record result for one team.
type CacheEntry struct {
	Fingerprint Fingerprint
	ComputedAt  time.Time
	FileCount   int
	Best        BestRecords
	Valid       bool
}

// CacheDiagnostics is the read-only introspection view of a cache entry.
type CacheDiagnostics struct {
	FileCount       int       `json:"fileCount"`
	LastScanTime    time.Time `json:"lastScanTime"`
	CacheAgeSeconds float64   `json:"cacheAgeSeconds"`
	Valid           bool      `json:"valid"`
}
