package reportsim

import (
	"math/rand/v2"

	"github.com/okian/benchboard/internal/domain/model"
)

// Generator builds randomised but well-formed report bodies.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator. Equal seeds yield equal sequences.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *Generator) uniform(lo, hi float64) float64 { return lo + g.rng.Float64()*(hi-lo) }

func (g *Generator) intn(lo, hi int) int64 { return int64(lo + g.rng.IntN(hi-lo+1)) }

func (g *Generator) buckets(maxCount int) []int64 {
	b := make([]int64, model.BucketCount)
	for i := range b {
		b[i] = g.intn(0, maxCount)
	}
	return b
}

// Stats returns one mock report body. About half of the bodies carry the
// high-priority latency fields.
func (g *Generator) Stats() model.Stats {
	totalSent := g.intn(1000, 10000)
	totalOps := int64(float64(totalSent) * g.uniform(0.85, 0.98))
	totalErrors := totalSent - totalOps
	elapsed := g.uniform(30, 300)
	hpTotal := int64(float64(totalSent) * g.uniform(0.1, 0.3))

	avg := g.uniform(10, 500)
	minLat := avg * g.uniform(0.1, 0.5)
	maxLat := avg * g.uniform(2, 10)
	dist := &model.LatencyDistribution{
		Avg:     avg,
		Min:     minLat,
		Max:     maxLat,
		Buckets: g.buckets(100),
	}
	if g.rng.IntN(2) == 0 {
		count := g.intn(1, 100)
		hpAvg := avg * g.uniform(0.5, 1.5)
		hpMin := minLat * g.uniform(0.5, 1.0)
		hpMax := maxLat * g.uniform(0.5, 1.5)
		dist.HighPriorityCount = &count
		dist.HighPriorityAvg = &hpAvg
		dist.HighPriorityMin = &hpMin
		dist.HighPriorityMax = &hpMax
		dist.HighPriorityBuckets = g.buckets(50)
	}

	errorRate := 0.0
	if totalOps > 0 {
		errorRate = float64(totalErrors) / float64(totalOps) * 100
	}

	return model.Stats{
		TotalElapsed:         elapsed,
		TotalSent:            totalSent,
		TotalOps:             totalOps,
		TotalErrors:          totalErrors,
		TotalSaveDelayErrors: int64(float64(totalErrors) * g.uniform(0.1, 0.3)),
		Pending:              g.intn(0, 100),
		Operations: model.Operations{SensorData: &model.OperationStat{
			Operations: int64(float64(totalOps) * g.uniform(0.3, 0.5)),
			Errors:     int64(float64(totalErrors) * g.uniform(0.2, 0.4)),
		}},
		HighPriorityStats: model.HighPriorityStats{
			SensorDataCount: int64(float64(hpTotal) * g.uniform(0.3, 0.5)),
			TotalCount:      hpTotal,
			Percentage:      float64(hpTotal) / float64(totalSent) * 100,
		},
		PerformanceMetrics: model.PerformanceMetrics{
			AvgSentQPS:      float64(totalSent) / elapsed,
			AvgCompletedQPS: float64(totalOps) / elapsed,
			ErrorRate:       errorRate,
		},
		LatencyAnalysis: model.LatencyAnalysis{SensorData: dist},
	}
}
