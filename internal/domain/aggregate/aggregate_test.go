package aggregate_test

import (
	"testing"

	"github.com/okian/benchboard/internal/domain/aggregate"
	"github.com/okian/benchboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func baseStats() model.Stats {
	return model.Stats{
		TotalSent: 1000,
		TotalOps:  980,
		Pending:   15,
		LatencyAnalysis: model.LatencyAnalysis{SensorData: &model.LatencyDistribution{
			Avg:     7.5,
			Buckets: []int64{100, 200, 150, 80, 50, 20, 10, 5, 2, 1, 0, 0, 0},
		}},
	}
}

func TestDataLossRate(t *testing.T) {
	Convey("Given report counters", t, func() {
		Convey("When some requests were lost", func() {
			s := baseStats()
			So(aggregate.DataLossRate(s), ShouldAlmostEqual, 0.5, 1e-12)
			So(aggregate.Overcounted(s), ShouldBeFalse)
		})

		Convey("When everything completed", func() {
			s := baseStats()
			s.TotalOps, s.Pending = 1000, 0
			So(aggregate.DataLossRate(s), ShouldEqual, 0.0)
		})

		Convey("When completed plus pending exceeds sent", func() {
			s := baseStats()
			s.TotalOps, s.Pending = 1000, 40
			So(aggregate.DataLossRate(s), ShouldEqual, 0.0)
			So(aggregate.Overcounted(s), ShouldBeTrue)
		})

		Convey("When nothing was sent", func() {
			So(aggregate.DataLossRate(model.Stats{Pending: 3}), ShouldEqual, 0.0)
		})
	})
}

func TestResolveAvgLatency(t *testing.T) {
	Convey("Given the average latency precedence", t, func() {
		Convey("When totalAvgLatency is present it wins, even when zero", func() {
			s := baseStats()
			s.TotalAvgLatency = f64(0)
			r := aggregate.ResolveAvgLatency(s)
			So(r.Source, ShouldEqual, aggregate.SourcePresent)
			So(r.Value, ShouldEqual, 0.0)
		})

		Convey("When absent the histogram average is used", func() {
			r := aggregate.ResolveAvgLatency(baseStats())
			So(r.Source, ShouldEqual, aggregate.SourceLegacy)
			So(r.Value, ShouldEqual, 7.5)
		})

		Convey("When the histogram is empty the result is zero", func() {
			s := baseStats()
			s.LatencyAnalysis.SensorData.Buckets = make([]int64, 13)
			r := aggregate.ResolveAvgLatency(s)
			So(r.Source, ShouldEqual, aggregate.SourceZero)
			So(r.Value, ShouldEqual, 0.0)
		})

		Convey("When the histogram section is missing the result is zero", func() {
			r := aggregate.ResolveAvgLatency(model.Stats{})
			So(r.Source, ShouldEqual, aggregate.SourceZero)
		})
	})
}

func TestResolveHighPriorityLatency(t *testing.T) {
	Convey("Given the high-priority latency precedence", t, func() {
		Convey("When highPriorityAvgDelayLatency is present", func() {
			s := baseStats()
			s.HighPriorityAvgDelay = f64(3.25)
			r := aggregate.ResolveHighPriorityLatency(s)
			So(r.Source, ShouldEqual, aggregate.SourcePresent)
			So(r.Value, ShouldEqual, 3.25)
		})

		Convey("When the histogram carries a high-priority average and count", func() {
			s := baseStats()
			s.LatencyAnalysis.SensorData.HighPriorityAvg = f64(2.5)
			s.LatencyAnalysis.SensorData.HighPriorityCount = i64(12)
			r := aggregate.ResolveHighPriorityLatency(s)
			So(r.Source, ShouldEqual, aggregate.SourceLegacy)
			So(r.Value, ShouldEqual, 2.5)
		})

		Convey("When the count is zero the average is ignored", func() {
			s := baseStats()
			s.LatencyAnalysis.SensorData.HighPriorityAvg = f64(2.5)
			s.LatencyAnalysis.SensorData.HighPriorityCount = i64(0)
			So(aggregate.ResolveHighPriorityLatency(s).Source, ShouldEqual, aggregate.SourceZero)
		})

		Convey("When nothing is supplied", func() {
			So(aggregate.ResolveHighPriorityLatency(baseStats()).Source, ShouldEqual, aggregate.SourceZero)
			So(aggregate.SourceZero.String(), ShouldEqual, "zero")
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given a complete report", t, func() {
		s := baseStats()
		s.TotalAvgLatency = f64(9)
		s.HighPriorityAvgDelay = f64(4)

		m := aggregate.Aggregate(s)

		Convey("Then every field follows its rule", func() {
			So(m.AvgLatency, ShouldEqual, 9.0)
			So(m.HighPriorityAvgLatency, ShouldEqual, 4.0)
			So(m.DataLossRate, ShouldAlmostEqual, 0.5, 1e-12)
			So(m.P99Latency, ShouldAlmostEqual, 136.4, 1e-9)
		})

		Convey("And a tail-only histogram reports the last finite boundary", func() {
			s.LatencyAnalysis.SensorData.Buckets = []int64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 4}
			So(aggregate.Aggregate(s).P99Latency, ShouldEqual, 5000.0)
		})

		Convey("And a malformed histogram reports zero p99", func() {
			s.LatencyAnalysis.SensorData.Buckets = []int64{1, 2}
			So(aggregate.Aggregate(s).P99Latency, ShouldEqual, 0.0)
		})
	})
}
