package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/benchboard/internal/adapters/archive"
	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func ptr[T any](v T) *T { return &v }

// sampleStats builds a valid report body with the given completed QPS and
// average latency.
func sampleStats(qps, avgLatency float64) model.Stats {
	buckets := make([]int64, model.BucketCount)
	buckets[4] = 90
	buckets[6] = 10
	return model.Stats{
		TotalElapsed:    10,
		TotalSent:       100,
		TotalOps:        100,
		TotalAvgLatency: ptr(avgLatency),
		Operations:      model.Operations{SensorData: &model.OperationStat{Operations: 100}},
		PerformanceMetrics: model.PerformanceMetrics{
			AvgSentQPS:      qps,
			AvgCompletedQPS: qps,
		},
		LatencyAnalysis: model.LatencyAnalysis{SensorData: &model.LatencyDistribution{
			Avg:     avgLatency,
			Min:     1,
			Max:     80,
			Buckets: buckets,
		}},
	}
}

// fakeArchive serves synthetic records from memory.
type fakeArchive struct {
	refs      []model.RecordRef
	reports   map[string]model.Report
	loadDelay time.Duration
	gate      chan struct{}
	corrupt   map[string]bool
	missing   bool

	listCalls atomic.Int32
	loads     atomic.Int32
}

func newFakeArchive(n int) *fakeArchive {
	a := &fakeArchive{reports: make(map[string]model.Report, n)}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		ts := base.Add(time.Duration(n-i) * time.Second)
		id := ts.Format("20060102_150405")
		a.refs = append(a.refs, model.RecordRef{ID: id, Timestamp: ts})
		a.reports[id] = model.Report{
			TeamID:      "t1",
			SubmittedAt: ts,
			Stats:       sampleStats(float64(100+i%37), float64(10+i%11)),
		}
	}
	return a
}

func (a *fakeArchive) Fingerprint(_ context.Context, _ string) (model.Fingerprint, int, error) {
	return model.Fingerprint(len(a.refs) + 1), len(a.refs), nil
}

func (a *fakeArchive) List(_ context.Context, _ string) ([]model.RecordRef, error) {
	a.listCalls.Add(1)
	if a.missing {
		return nil, fmt.Errorf("%w: t1", archive.ErrArchiveUnavailable)
	}
	return a.refs, nil
}

func (a *fakeArchive) Load(ctx context.Context, ref model.RecordRef) (model.Report, error) {
	a.loads.Add(1)
	if a.gate != nil {
		<-a.gate
	}
	if a.loadDelay > 0 {
		time.Sleep(a.loadDelay)
	}
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}
	if a.corrupt[ref.ID] {
		return model.Report{}, fmt.Errorf("%w: %s", archive.ErrRecordUnreadable, ref.ID)
	}
	return a.reports[ref.ID], nil
}

// gatedLogger blocks the first log call with message msg until released.
type gatedLogger struct {
	msg     string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedLogger(msg string) *gatedLogger {
	return &gatedLogger{msg: msg, entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLogger) wait(msg string) {
	if msg != l.msg {
		return
	}
	l.once.Do(func() {
		close(l.entered)
		<-l.release
	})
}

func (l *gatedLogger) Info(_ context.Context, msg string, _ ...logger.Field)  { l.wait(msg) }
func (l *gatedLogger) Error(_ context.Context, msg string, _ ...logger.Field) { l.wait(msg) }
func (l *gatedLogger) Debug(_ context.Context, msg string, _ ...logger.Field) { l.wait(msg) }
func (l *gatedLogger) Warn(_ context.Context, msg string, _ ...logger.Field)  { l.wait(msg) }
func (l *gatedLogger) Fatal(_ context.Context, msg string, _ ...logger.Field) { l.wait(msg) }
func (l *gatedLogger) Named(string) logger.Logger                             { return l }
