package service

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	"github.com/okian/benchboard/internal/adapters/archive"
	"github.com/okian/benchboard/internal/adapters/cache"
	"github.com/okian/benchboard/internal/adapters/mq/worker"
	"github.com/okian/benchboard/internal/domain/bestrecord"
	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
	"github.com/okian/benchboard/pkg/metrics"
)

// Default scan configuration constants.
const (
	defaultBatchThreshold = 50
	defaultBatchSize      = 50
)

// Archive is the read side of the team archive used by scans.
type Archive interface {
	Fingerprint(ctx context.Context, teamID string) (model.Fingerprint, int, error)
	List(ctx context.Context, teamID string) ([]model.RecordRef, error)
	Load(ctx context.Context, ref model.RecordRef) (model.Report, error)
}

// ScanResult is the outcome of one best-record computation.
type ScanResult struct {
	Best model.BestRecords
	// Cached is true when the result came from the staleness cache.
	Cached bool
	// Partial is true when the scan budget expired before every batch ran.
	Partial bool
	// Records is the number of records visited, Skipped the unreadable ones among them.
	Records int
	Skipped int
}

// Scanner computes best records from a team's archive, consulting and
// refreshing the staleness cache. Concurrent misses for the same team share
// one scan.
type Scanner struct {
	archive   Archive
	cache     *cache.Cache
	pool      *worker.Pool
	threshold int
	batchSize int
	timeout   time.Duration
	now       func() time.Time
	log       logger.Logger

	group singleflight.Group
}

// ScannerOption applies a configuration option to the Scanner.
type ScannerOption func(*Scanner)

// WithScanBatching sets the sequential threshold and the batch size.
func WithScanBatching(threshold, batchSize int) ScannerOption {
	return func(s *Scanner) {
		if threshold > 0 {
			s.threshold = threshold
		}
		if batchSize > 0 {
			s.batchSize = batchSize
		}
	}
}

// WithScanPool sets the pool batches run on.
func WithScanPool(p *worker.Pool) ScannerOption {
	return func(s *Scanner) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithScanBudget bounds the wall-clock time of a scan. Zero disables it.
func WithScanBudget(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithScanClock overrides the time source for cache timestamps.
func WithScanClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScanLogger sets the scanner logger.
func WithScanLogger(l logger.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScanner creates a Scanner over a and c.
func NewScanner(a Archive, c *cache.Cache, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		archive:   a,
		cache:     c,
		threshold: defaultBatchThreshold,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = worker.NewPool(0)
	}
	if s.log == nil {
		s.log = logger.Get().Named("scanner")
	}
	return s
}

// Compute returns the team's best records. A cache hit skips the archive;
// otherwise the archive is scanned and, when the scan completed over at least
// one record, the result is cached under the fingerprint taken before listing.
func (s *Scanner) Compute(ctx context.Context, teamID string) (ScanResult, error) {
	fp, files, err := s.archive.Fingerprint(ctx, teamID)
	if err != nil {
		return ScanResult{}, err
	}
	if entry, st := s.cache.Get(teamID, fp); st == cache.Hit {
		return ScanResult{Best: entry.Best, Cached: true, Records: entry.FileCount}, nil
	}

	// The shared scan outlives any one caller; each caller stops waiting
	// when its own context ends.
	scanCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(teamID, func() (any, error) {
		return s.scan(scanCtx, teamID, fp, files)
	})
	select {
	case <-ctx.Done():
		return ScanResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ScanResult{}, res.Err
		}
		return res.Val.(ScanResult), nil
	}
}

type batchResult struct {
	best    model.BestRecords
	records int
	skipped int
	errs    *multierror.Error
	stopped bool
}

func (b batchResult) merge(o batchResult) batchResult {
	b.best = bestrecord.Merge(b.best, o.best)
	b.records += o.records
	b.skipped += o.skipped
	b.errs = multierror.Append(b.errs, o.errs.WrappedErrors()...)
	b.stopped = b.stopped || o.stopped
	return b
}

func (s *Scanner) scan(ctx context.Context, teamID string, fp model.Fingerprint, files int) (ScanResult, error) {
	start := time.Now()
	refs, err := s.archive.List(ctx, teamID)
	switch {
	case errors.Is(err, archive.ErrArchiveUnavailable):
		// Unknown teams are not cached.
		return ScanResult{}, nil
	case err != nil:
		return ScanResult{}, err
	}
	if len(refs) == 0 {
		return ScanResult{}, nil
	}

	budget := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		budget, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var total batchResult
	if len(refs) < s.threshold {
		total = s.reduce(ctx, teamID, refs, budget.Done())
	} else {
		total = s.runBatches(budget, teamID, refs)
	}

	res := ScanResult{
		Best:    total.best,
		Partial: total.stopped,
		Records: total.records,
		Skipped: total.skipped,
	}
	elapsed := time.Since(start)
	metrics.RecordScan(float64(elapsed.Microseconds())/1000, res.Records)

	if total.skipped > 0 {
		s.log.Warn(ctx, "scan skipped unreadable records",
			logger.String("team_id", teamID),
			logger.Int("skipped", total.skipped),
			logger.Error(total.errs.ErrorOrNil()),
		)
	}
	if res.Partial {
		metrics.RecordScanPartial()
		s.log.Warn(ctx, "scan budget exceeded, returning partial result",
			logger.String("team_id", teamID),
			logger.Int("records", res.Records),
			logger.Int("listed", len(refs)),
			logger.Duration("budget", s.timeout),
		)
		return res, nil
	}

	s.cache.Put(teamID, model.CacheEntry{
		Fingerprint: fp,
		ComputedAt:  s.now(),
		FileCount:   files,
		Best:        res.Best,
	})
	s.log.Debug(ctx, "scan complete",
		logger.String("team_id", teamID),
		logger.Int("records", res.Records),
		logger.Duration("took", elapsed),
	)
	return res, nil
}

// runBatches fans batches out on the pool. Batches not dispatched before the
// budget expires mark the result partial.
func (s *Scanner) runBatches(budget context.Context, teamID string, refs []model.RecordRef) batchResult {
	batches := worker.SplitIntoBatches(refs, s.batchSize)
	results := make([]batchResult, len(batches))
	tasks := make([]worker.Task, len(batches))
	for i, batch := range batches {
		tasks[i] = func(taskCtx context.Context) {
			metrics.RecordScanBatch()
			results[i] = s.reduce(taskCtx, teamID, batch, nil)
		}
	}

	dispatched := s.pool.Run(budget, tasks)

	var total batchResult
	for _, r := range results[:dispatched] {
		total = total.merge(r)
	}
	if dispatched < len(batches) {
		total.stopped = true
	}
	return total
}

// reduce folds refs sequentially. Unreadable records are logged and
// excluded. A closed stop channel ends the fold early.
func (s *Scanner) reduce(ctx context.Context, teamID string, refs []model.RecordRef, stop <-chan struct{}) batchResult {
	var r batchResult
	for _, ref := range refs {
		select {
		case <-stop:
			r.stopped = true
			return r
		default:
		}

		rep, err := s.archive.Load(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				r.stopped = true
				return r
			}
			r.records++
			r.skipped++
			r.errs = multierror.Append(r.errs, err)
			s.log.Warn(ctx, "record unreadable",
				logger.String("team_id", teamID),
				logger.String("record_id", ref.ID),
				logger.Error(err),
			)
			continue
		}
		r.records++
		r.best = bestrecord.Merge(r.best, bestrecord.Observe(rep))
	}
	return r
}
