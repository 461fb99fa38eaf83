// Package bestrecord reduces reports to a team's best-ever QPS and latency.
//
// Merge is commutative and associative, so partial results computed over any
// partition of an archive combine to the same answer in any order.
package bestrecord

import (
	"github.com/okian/benchboard/internal/domain/aggregate"
	"github.com/okian/benchboard/internal/domain/model"
)

// Observe returns the best records contributed by a single report. QPS
// participates only when positive; latency only when the resolved average is
// positive.
func Observe(r model.Report) model.BestRecords {
	var b model.BestRecords
	if qps := r.Stats.CompletedQPS(); qps > 0 {
		b.QPS, b.QPSAt, b.HasQPS = qps, r.SubmittedAt, true
	}
	if lat := aggregate.ResolveAvgLatency(r.Stats).Value; lat > 0 {
		b.Latency, b.LatencyAt, b.HasLatency = lat, r.SubmittedAt, true
	}
	return b
}

// Merge combines two partial results: max QPS, min latency, ties broken by the
// earliest timestamp.
func Merge(a, b model.BestRecords) model.BestRecords {
	out := a
	switch {
	case !a.HasQPS:
		out.QPS, out.QPSAt, out.HasQPS = b.QPS, b.QPSAt, b.HasQPS
	case b.HasQPS && (b.QPS > a.QPS || (b.QPS == a.QPS && b.QPSAt.Before(a.QPSAt))):
		out.QPS, out.QPSAt = b.QPS, b.QPSAt
	}
	switch {
	case !a.HasLatency:
		out.Latency, out.LatencyAt, out.HasLatency = b.Latency, b.LatencyAt, b.HasLatency
	case b.HasLatency && (b.Latency < a.Latency || (b.Latency == a.Latency && b.LatencyAt.Before(a.LatencyAt))):
		out.Latency, out.LatencyAt = b.Latency, b.LatencyAt
	}
	return out
}

// Reduce folds reports sequentially.
func Reduce(reports []model.Report) model.BestRecords {
	var acc model.BestRecords
	for i := range reports {
		acc = Merge(acc, Observe(reports[i]))
	}
	return acc
}

// Improves reports whether candidate would change current when merged.
func Improves(current, candidate model.BestRecords) bool {
	merged := Merge(current, candidate)
	return merged.HasQPS != current.HasQPS || merged.QPS != current.QPS ||
		merged.HasLatency != current.HasLatency || merged.Latency != current.Latency
}
