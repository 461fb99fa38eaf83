package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/benchboard/internal/app"
	"github.com/okian/benchboard/internal/adapters/cache"
	"github.com/okian/benchboard/internal/adapters/mq/worker"
	"github.com/okian/benchboard/internal/domain/bestrecord"
	"github.com/okian/benchboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func reduceAll(a *fakeArchive) model.BestRecords {
	reports := make([]model.Report, 0, len(a.refs))
	for _, ref := range a.refs {
		reports = append(reports, a.reports[ref.ID])
	}
	return bestrecord.Reduce(reports)
}

func TestScanner_BatchingIsInvisible(t *testing.T) {
	Convey("Given an archive of 200 records", t, func() {
		a := newFakeArchive(200)
		expected := reduceAll(a)
		ctx := context.Background()

		Convey("When scanning sequentially, with batches of 10 and with batches of 50", func() {
			seq := service.NewScanner(a, cache.New(), service.WithScanBatching(1000, 50))
			small := service.NewScanner(a, cache.New(), service.WithScanBatching(10, 10), service.WithScanPool(worker.NewPool(3)))
			large := service.NewScanner(a, cache.New(), service.WithScanBatching(10, 50), service.WithScanPool(worker.NewPool(8)))

			r1, err1 := seq.Compute(ctx, "t1")
			r2, err2 := small.Compute(ctx, "t1")
			r3, err3 := large.Compute(ctx, "t1")

			Convey("Then every result equals the single-pass reduction", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(r1.Best, ShouldResemble, expected)
				So(r2.Best, ShouldResemble, expected)
				So(r3.Best, ShouldResemble, expected)
				So(r2.Records, ShouldEqual, 200)
				So(r2.Partial, ShouldBeFalse)
			})
		})
	})
}

func TestScanner_CacheHit(t *testing.T) {
	Convey("Given a scanner over a fixed archive", t, func() {
		a := newFakeArchive(20)
		c := cache.New()
		s := service.NewScanner(a, c)
		ctx := context.Background()

		Convey("When computing twice", func() {
			first, err := s.Compute(ctx, "t1")
			So(err, ShouldBeNil)
			second, err := s.Compute(ctx, "t1")
			So(err, ShouldBeNil)

			Convey("Then the second call is served from the cache", func() {
				So(first.Cached, ShouldBeFalse)
				So(second.Cached, ShouldBeTrue)
				So(second.Best, ShouldResemble, first.Best)
				So(a.listCalls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the entry is invalidated", func() {
			_, err := s.Compute(ctx, "t1")
			So(err, ShouldBeNil)
			c.Invalidate("t1")
			res, err := s.Compute(ctx, "t1")

			Convey("Then the archive is scanned again", func() {
				So(err, ShouldBeNil)
				So(res.Cached, ShouldBeFalse)
				So(a.listCalls.Load(), ShouldEqual, 2)
			})
		})
	})
}

func TestScanner_Budget(t *testing.T) {
	Convey("Given a slow archive and a short scan budget", t, func() {
		a := newFakeArchive(100)
		a.loadDelay = 20 * time.Millisecond
		c := cache.New()
		s := service.NewScanner(a, c,
			service.WithScanBatching(10, 10),
			service.WithScanPool(worker.NewPool(1)),
			service.WithScanBudget(30*time.Millisecond),
		)

		Convey("When computing", func() {
			res, err := s.Compute(context.Background(), "t1")

			Convey("Then a partial result is returned and not cached", func() {
				So(err, ShouldBeNil)
				So(res.Partial, ShouldBeTrue)
				So(res.Records, ShouldBeLessThan, 100)
				So(res.Records, ShouldBeGreaterThan, 0)
				So(res.Best.HasQPS, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestScanner_CollapsesConcurrentMisses(t *testing.T) {
	Convey("Given a scan blocked on its first load", t, func() {
		a := newFakeArchive(5)
		a.gate = make(chan struct{})
		s := service.NewScanner(a, cache.New())

		Convey("When several callers miss at once", func() {
			const callers = 5
			results := make([]service.ScanResult, callers)
			errs := make([]error, callers)
			var wg sync.WaitGroup
			for i := range callers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = s.Compute(context.Background(), "t1")
				}(i)
			}
			time.Sleep(50 * time.Millisecond)
			close(a.gate)
			wg.Wait()

			Convey("Then the archive is listed once and everyone gets the same result", func() {
				So(a.listCalls.Load(), ShouldEqual, 1)
				for i := range callers {
					So(errs[i], ShouldBeNil)
					So(results[i].Best, ShouldResemble, results[0].Best)
				}
			})
		})
	})
}

func TestScanner_SkipsUnreadableRecords(t *testing.T) {
	Convey("Given ten records of which one is corrupt", t, func() {
		a := newFakeArchive(10)
		bad := a.refs[3].ID
		a.corrupt = map[string]bool{bad: true}

		valid := make([]model.Report, 0, 9)
		for _, ref := range a.refs {
			if ref.ID != bad {
				valid = append(valid, a.reports[ref.ID])
			}
		}
		expected := bestrecord.Reduce(valid)

		Convey("When scanning sequentially and in batches", func() {
			seq := service.NewScanner(a, cache.New())
			batched := service.NewScanner(a, cache.New(),
				service.WithScanBatching(2, 3), service.WithScanPool(worker.NewPool(2)))

			r1, err1 := seq.Compute(context.Background(), "t1")
			r2, err2 := batched.Compute(context.Background(), "t1")

			Convey("Then the corrupt record is skipped and every valid one counts", func() {
				for _, r := range []service.ScanResult{r1, r2} {
					So(r.Records, ShouldEqual, 10)
					So(r.Skipped, ShouldEqual, 1)
					So(r.Partial, ShouldBeFalse)
					So(r.Best, ShouldResemble, expected)
				}
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
			})
		})
	})
}

func TestScanner_UnknownTeamIsNotCached(t *testing.T) {
	Convey("Given a team without an archive directory", t, func() {
		a := newFakeArchive(0)
		a.missing = true
		c := cache.New()
		s := service.NewScanner(a, c)

		Convey("When computing", func() {
			res, err := s.Compute(context.Background(), "ghost")

			Convey("Then the result is empty and nothing is cached", func() {
				So(err, ShouldBeNil)
				So(res.Best.HasQPS, ShouldBeFalse)
				So(res.Best.HasLatency, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestScanner_SharedScanSurvivesCallerCancel(t *testing.T) {
	Convey("Given a scan blocked on its first load", t, func() {
		a := newFakeArchive(5)
		a.gate = make(chan struct{})
		s := service.NewScanner(a, cache.New())

		Convey("When the first caller gives up while another waits", func() {
			leaderCtx, cancel := context.WithCancel(context.Background())
			leaderErr := make(chan error, 1)
			go func() {
				_, err := s.Compute(leaderCtx, "t1")
				leaderErr <- err
			}()
			for a.loads.Load() == 0 {
				time.Sleep(time.Millisecond)
			}

			follower := make(chan service.ScanResult, 1)
			go func() {
				res, _ := s.Compute(context.Background(), "t1")
				follower <- res
			}()
			time.Sleep(50 * time.Millisecond)
			cancel()
			err := <-leaderErr
			close(a.gate)
			res := <-follower

			Convey("Then only the first caller sees the cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(res.Partial, ShouldBeFalse)
				So(res.Records, ShouldEqual, 5)
				So(res.Best, ShouldResemble, reduceAll(a))
				So(a.listCalls.Load(), ShouldEqual, 1)
			})
		})
	})
}
