package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.reportsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_reports_submitted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})

			Convey("And the refresh interval is kept", func() {
				So(manager.refreshInterval, ShouldEqual, time.Second)
			})
		})

		Convey("When two managers use separate registries", func() {
			So(func() {
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			}, ShouldNotPanic)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingestion and archive metrics", func() {
			before := testutil.ToFloat64(globalManager.reportsSubmitted)
			RecordReportSubmitted()
			RecordReportRejected("validation")
			RecordArchiveWrite()
			RecordRecordUnreadable()

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.reportsSubmitted), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.reportsRejected.WithLabelValues("validation")), ShouldBeGreaterThanOrEqualTo, 1.0)
			})
		})

		Convey("When recording cache and scan metrics", func() {
			RecordCacheLookup("hit")
			RecordCacheInvalidation()
			UpdateCacheEntries(3)
			RecordScan(12.5, 200)
			RecordScanBatch()
			AddScanWorkersBusy(1)
			AddScanWorkersBusy(-1)

			Convey("Then gauges hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.cacheEntries), ShouldEqual, 3.0)
				So(testutil.ToFloat64(globalManager.scanWorkerBusy), ShouldEqual, 0.0)
			})
		})

		Convey("When exposing the registry", func() {
			RecordHTTPRequest("teams", "GET", "200")
			RecordHTTPRequestDuration("teams", "GET", "200", 3)
			RecordEventPublished()
			UpdateSystemGoroutineCount(10)

			Convey("Then the gathered output contains benchboard metrics", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "benchboard_core_http_requests_total")
			})
		})
	})
}
