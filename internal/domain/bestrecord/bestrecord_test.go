package bestrecord_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/benchboard/internal/domain/bestrecord"
	"github.com/okian/benchboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func report(offset int, qps, avg float64) model.Report {
	return model.Report{
		TeamID:      "t1",
		SubmittedAt: epoch.Add(time.Duration(offset) * time.Second),
		Stats: model.Stats{
			TotalAvgLatency:    &avg,
			PerformanceMetrics: model.PerformanceMetrics{AvgCompletedQPS: qps},
		},
	}
}

func TestObserve(t *testing.T) {
	Convey("Given single reports", t, func() {
		Convey("When qps and latency are positive", func() {
			b := bestrecord.Observe(report(1, 50, 3))
			So(b.HasQPS, ShouldBeTrue)
			So(b.HasLatency, ShouldBeTrue)
			So(b.QPSAt, ShouldEqual, epoch.Add(time.Second))
		})

		Convey("When qps and latency are zero they do not participate", func() {
			b := bestrecord.Observe(report(1, 0, 0))
			So(b.HasQPS, ShouldBeFalse)
			So(b.HasLatency, ShouldBeFalse)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given partial results", t, func() {
		a := bestrecord.Observe(report(10, 100, 5))
		b := bestrecord.Observe(report(20, 80, 2))
		c := bestrecord.Observe(report(5, 100, 2))

		Convey("Then merge picks max qps and min latency", func() {
			m := bestrecord.Merge(a, b)
			So(m.QPS, ShouldEqual, 100.0)
			So(m.QPSAt, ShouldEqual, a.QPSAt)
			So(m.Latency, ShouldEqual, 2.0)
			So(m.LatencyAt, ShouldEqual, b.LatencyAt)
		})

		Convey("Then ties go to the earliest timestamp", func() {
			m := bestrecord.Merge(bestrecord.Merge(a, b), c)
			So(m.QPSAt, ShouldEqual, c.QPSAt)
			So(m.LatencyAt, ShouldEqual, c.LatencyAt)
		})

		Convey("Then merge is commutative and associative", func() {
			So(bestrecord.Merge(a, b), ShouldResemble, bestrecord.Merge(b, a))
			So(bestrecord.Merge(bestrecord.Merge(a, b), c), ShouldResemble, bestrecord.Merge(a, bestrecord.Merge(b, c)))
		})

		Convey("Then the empty result is the identity", func() {
			var zero model.BestRecords
			So(bestrecord.Merge(zero, a), ShouldResemble, a)
			So(bestrecord.Merge(a, zero), ShouldResemble, a)
		})
	})
}

func TestReduce(t *testing.T) {
	Convey("Given a shuffled archive", t, func() {
		reports := make([]model.Report, 0, 200)
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			reports = append(reports, report(i, float64(rng.Intn(50)), float64(rng.Intn(20))))
		}

		want := bestrecord.Reduce(reports)
		rng.Shuffle(len(reports), func(i, j int) { reports[i], reports[j] = reports[j], reports[i] })

		Convey("Then order does not affect the result", func() {
			So(bestrecord.Reduce(reports), ShouldResemble, want)
		})

		Convey("Then an empty archive has no latency", func() {
			b := bestrecord.Reduce(nil)
			So(b.QPS, ShouldEqual, 0.0)
			So(b.HasLatency, ShouldBeFalse)
		})
	})
}

func TestImproves(t *testing.T) {
	Convey("Given a current best", t, func() {
		cur := bestrecord.Observe(report(0, 10, 5))

		So(bestrecord.Improves(cur, bestrecord.Observe(report(1, 11, 6))), ShouldBeTrue)
		So(bestrecord.Improves(cur, bestrecord.Observe(report(1, 10, 5))), ShouldBeFalse)
		So(bestrecord.Improves(cur, bestrecord.Observe(report(1, 0, 0))), ShouldBeFalse)
	})
}
