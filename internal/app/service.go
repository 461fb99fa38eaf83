// Package service provides the core business service behind the HTTP API:
// report ingestion, live team state, archive history and cached best
// records.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/benchboard/internal/adapters/archive"
	"github.com/okian/benchboard/internal/adapters/cache"
	"github.com/okian/benchboard/internal/adapters/mq/queue"
	"github.com/okian/benchboard/internal/adapters/mq/worker"
	"github.com/okian/benchboard/internal/adapters/repository"
	"github.com/okian/benchboard/internal/domain/aggregate"
	"github.com/okian/benchboard/internal/domain/dedupe"
	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
	"github.com/okian/benchboard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultDataDir         = "data"
	defaultCacheTTL        = 300 * time.Second
	defaultScanWorkers     = 4
	defaultQueueSize       = 1024
	defaultInactiveAfter   = 300 * time.Second
	defaultMaxHistoryLimit = 100
	defaultHistoryLimit    = 10
	recentIDCount          = 5
	dispatcherStopTimeout  = 5 * time.Second
	dedupeWindowFactor     = 4
)

// Service implements the API dependencies for the benchmark dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	archive    *archive.Store
	cache      *cache.Cache
	scanner    *Scanner
	live       repository.Store
	events     *queue.InMemoryQueue
	dispatcher *worker.Dispatcher
	sink       worker.Sink

	// Configuration
	dataDir         string
	cacheTTL        time.Duration
	batchThreshold  int
	batchSize       int
	scanWorkers     int
	scanTimeout     time.Duration
	queueSize       int
	inactiveAfter   time.Duration
	maxHistoryLimit int
	now             func() time.Time

	// State
	started   bool
	starting  bool
	runCancel context.CancelFunc
	runDone   chan struct{}

	logger logger.Logger
}

// New constructs a Service. Components are built immediately so reads work
// before Start; Start adds cold-start recovery and event delivery.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:         defaultDataDir,
		cacheTTL:        defaultCacheTTL,
		batchThreshold:  defaultBatchThreshold,
		batchSize:       defaultBatchSize,
		scanWorkers:     defaultScanWorkers,
		queueSize:       defaultQueueSize,
		inactiveAfter:   defaultInactiveAfter,
		maxHistoryLimit: defaultMaxHistoryLimit,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.sink == nil {
		s.sink = worker.LogSink(logger.Get().Named("events"))
	}

	s.archive = archive.New(s.dataDir)
	s.cache = cache.New(cache.WithTTL(s.cacheTTL), cache.WithClock(s.now))
	s.scanner = NewScanner(s.archive, s.cache,
		WithScanBatching(s.batchThreshold, s.batchSize),
		WithScanPool(worker.NewPool(s.scanWorkers)),
		WithScanBudget(s.scanTimeout),
		WithScanClock(s.now),
	)
	s.live = repository.NewLiveStore()
	s.events = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	return s
}

// Start recovers live state from the archive and begins delivering update
// events.
//
// Recovery runs without holding the service lock, so reads and GetStats are
// served while it is in progress.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.mu.Unlock()

	s.logger.Info(ctx, "starting benchboard service...", logger.String("data_dir", s.dataDir))

	recovered, err := s.recover(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return fmt.Errorf("recover live state: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.dispatcher = worker.NewDispatcher(s.events, s.sink,
		worker.WithName("event-dispatcher"),
		worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.queueSize*dedupeWindowFactor))),
	)
	s.runCancel = cancel
	s.runDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.dispatcher.Run(runCtx)
	}(s.runDone)

	s.started = true
	s.logger.Info(ctx, "benchboard service started",
		logger.Int("teams_recovered", recovered),
		logger.Int("scan_workers", s.scanWorkers),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("cache_ttl", s.cacheTTL),
	)
	return nil
}

// recover seeds the live store from each team's latest record and a full
// archive scan. Teams whose latest record is missing are skipped.
func (s *Service) recover(ctx context.Context) (int, error) {
	teams, err := s.archive.Teams(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, teamID := range teams {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		latest, err := s.archive.Latest(ctx, teamID)
		if err != nil {
			s.logger.Warn(ctx, "skipping team without readable latest record",
				logger.String("team_id", teamID),
				logger.Error(err),
			)
			continue
		}
		res, err := s.scanner.Compute(ctx, teamID)
		if err != nil {
			s.logger.Warn(ctx, "cold-start scan failed",
				logger.String("team_id", teamID),
				logger.Error(err),
			)
		}
		s.live.Seed(model.TeamLiveState{
			TeamID:     teamID,
			TeamName:   latest.TeamName,
			LastUpdate: latest.SubmittedAt,
			Latest:     latest,
			Live:       aggregate.Aggregate(latest.Stats),
			Best:       res.Best,
		})
		n++
	}
	return n, nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatcherStopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping benchboard service...")

	if err := s.dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatcher did not stop cleanly", logger.Error(err))
	}
	s.runCancel()
	<-s.runDone

	if err := s.events.Close(); err != nil {
		s.logger.Warn(ctx, "closing event queue", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "benchboard service stopped")
}

// SubmitReport accepts one benchmark report: it stamps the submission time,
// computes the live metrics, persists the record, updates live state,
// invalidates the team's cached best records and publishes an update event.
func (s *Service) SubmitReport(ctx context.Context, teamID, teamName string, stats model.Stats) (model.UpdateEvent, error) {
	if err := archive.ValidateTeamID(teamID); err != nil {
		metrics.RecordReportRejected("team_id")
		return model.UpdateEvent{}, err
	}
	if err := stats.Validate(); err != nil {
		metrics.RecordReportRejected("validation")
		return model.UpdateEvent{}, err
	}
	if teamName == "" {
		teamName = "Team-" + teamID
	}

	report := model.Report{
		TeamID:      teamID,
		TeamName:    teamName,
		SubmittedAt: s.now().UTC().Truncate(time.Millisecond),
		Stats:       stats,
	}

	summary := aggregate.Aggregate(stats)
	if aggregate.Overcounted(stats) {
		metrics.RecordLossOvercounted()
		s.logger.Warn(ctx, "completed plus pending exceeds sent, data loss clamped to zero",
			logger.String("team_id", teamID),
			logger.Int64("sent", stats.TotalSent),
			logger.Int64("completed", stats.TotalOps),
			logger.Int64("pending", stats.Pending),
		)
	}

	ref, err := s.archive.Append(ctx, report)
	if err != nil {
		metrics.RecordErrorByComponent("service", "archive_append")
		return model.UpdateEvent{}, fmt.Errorf("persist report: %w", err)
	}

	state, improved := s.live.Apply(teamID, teamName, report, summary)
	s.cache.Invalidate(teamID)

	event := model.UpdateEvent{
		EventID:     uuid.NewString(),
		TeamID:      teamID,
		TeamName:    teamName,
		LiveMetrics: summary,
		Best:        state.Best,
		Timestamp:   report.SubmittedAt,
	}
	if !s.events.Publish(ctx, event) {
		s.logger.Warn(ctx, "update event dropped",
			logger.String("team_id", teamID),
			logger.String("event_id", event.EventID),
		)
	}
	metrics.RecordReportSubmitted()

	s.logger.Debug(ctx, "report accepted",
		logger.String("team_id", teamID),
		logger.String("record_id", ref.ID),
		logger.Float64("qps", stats.CompletedQPS()),
		logger.Float64("avg_latency", summary.AvgLatency),
		logger.Bool("best_improved", improved),
	)
	return event, nil
}

// GetLiveMetrics returns the team's latest report and metrics.
func (s *Service) GetLiveMetrics(_ context.Context, teamID string) (model.TeamView, error) {
	state, ok := s.live.Get(teamID)
	if !ok {
		return model.TeamView{}, fmt.Errorf("team %q: %w", teamID, ErrTeamNotFound)
	}
	return model.TeamView{
		TeamID:     state.TeamID,
		TeamName:   state.TeamName,
		LastUpdate: state.LastUpdate,
		IsActive:   s.isActive(state.LastUpdate),
		Stats:      state.Latest.Stats,
		Metrics:    state.Live,
		Best:       state.Best,
	}, nil
}

// GetBestRecords returns the team's best QPS and latency over its whole
// archive, reconciled with the live state. Unknown teams yield no records.
func (s *Service) GetBestRecords(ctx context.Context, teamID string) (model.BestRecords, error) {
	if err := archive.ValidateTeamID(teamID); err != nil {
		return model.BestRecords{}, err
	}
	res, err := s.scanner.Compute(ctx, teamID)
	if err != nil {
		return model.BestRecords{}, err
	}
	best, _ := s.live.MergeBest(teamID, res.Best)
	return best, nil
}

// ListHistory returns a page of the team's archive, newest first. A
// non-positive limit selects the default page size and the limit is capped.
// Unreadable records are left out of the page but still counted in Total.
func (s *Service) ListHistory(ctx context.Context, teamID string, limit, offset int) (model.HistoryPage, error) {
	if err := archive.ValidateTeamID(teamID); err != nil {
		return model.HistoryPage{}, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, s.maxHistoryLimit)
	offset = max(offset, 0)

	page := model.HistoryPage{TeamID: teamID, Records: []model.HistoryEntry{}, Limit: limit, Offset: offset}

	refs, err := s.list(ctx, teamID)
	if err != nil {
		return model.HistoryPage{}, err
	}
	page.Total = len(refs)
	page.HasMore = offset+limit < page.Total
	if offset >= len(refs) {
		return page, nil
	}

	for _, ref := range refs[offset:min(offset+limit, len(refs))] {
		rep, err := s.archive.Load(ctx, ref)
		if err != nil {
			s.logger.Warn(ctx, "record unreadable",
				logger.String("team_id", teamID),
				logger.String("record_id", ref.ID),
				logger.Error(err),
			)
			continue
		}
		page.Records = append(page.Records, model.HistoryEntry{
			ID:        ref.ID,
			Timestamp: rep.SubmittedAt,
			TeamName:  rep.TeamName,
			Stats:     rep.Stats,
			Metrics:   aggregate.Aggregate(rep.Stats),
		})
	}
	return page, nil
}

// HistorySummary describes the extent of the team's archive.
func (s *Service) HistorySummary(ctx context.Context, teamID string) (model.HistorySummary, error) {
	if err := archive.ValidateTeamID(teamID); err != nil {
		return model.HistorySummary{}, err
	}
	refs, err := s.list(ctx, teamID)
	if err != nil {
		return model.HistorySummary{}, err
	}

	sum := model.HistorySummary{TeamID: teamID, TotalReports: len(refs), RecentIDs: []string{}}
	if len(refs) == 0 {
		return sum, nil
	}
	first, last := refs[len(refs)-1].Timestamp, refs[0].Timestamp
	sum.FirstReport, sum.LastReport = &first, &last
	for _, ref := range refs[:min(recentIDCount, len(refs))] {
		sum.RecentIDs = append(sum.RecentIDs, ref.ID)
	}
	return sum, nil
}

// list treats a missing archive as an empty one.
func (s *Service) list(ctx context.Context, teamID string) ([]model.RecordRef, error) {
	refs, err := s.archive.List(ctx, teamID)
	if errors.Is(err, archive.ErrArchiveUnavailable) {
		return nil, nil
	}
	return refs, err
}

// ListTeams returns every team with live state, sorted by id.
func (s *Service) ListTeams(_ context.Context) []model.TeamSummary {
	states := s.live.List()
	out := make([]model.TeamSummary, 0, len(states))
	for _, st := range states {
		out = append(out, model.TeamSummary{
			TeamID:     st.TeamID,
			TeamName:   st.TeamName,
			LastUpdate: st.LastUpdate,
			IsActive:   s.isActive(st.LastUpdate),
			Metrics:    st.Live,
			Best:       st.Best,
		})
	}
	return out
}

func (s *Service) isActive(last time.Time) bool {
	return s.now().Sub(last) < s.inactiveAfter
}

// GetCacheDiagnostics returns the staleness cache state per team.
func (s *Service) GetCacheDiagnostics(_ context.Context) map[string]model.CacheDiagnostics {
	return s.cache.Diagnostics()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"starting":       s.starting,
		"dataDir":        s.dataDir,
		"cacheTtlSec":    s.cacheTTL.Seconds(),
		"batchThreshold": s.batchThreshold,
		"batchSize":      s.batchSize,
		"scanWorkers":    s.scanWorkers,
		"queueSize":      s.queueSize,
		"totalTeams":     s.live.Count(),
		"cacheEntries":   s.cache.Len(),
		"queueLength":    s.events.Len(),
	}

	metrics.UpdateLiveTeams(s.live.Count())
	metrics.UpdateEventQueueSize(s.events.Len())
	return stats
}

// MaxHistoryLimit returns the page size cap for history queries.
func (s *Service) MaxHistoryLimit() int { return s.maxHistoryLimit }
