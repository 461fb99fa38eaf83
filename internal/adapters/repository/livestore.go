package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/benchboard/internal/domain/bestrecord"
	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
	"github.com/okian/benchboard/pkg/metrics"
)

// LiveStore is the fast path for team state. Writers take the mutex and
// replace whole values; each write publishes an immutable sorted snapshot
// that List serves without locking.
type LiveStore struct {
	mu    sync.Mutex
	teams map[string]model.TeamLiveState

	snapshot atomic.Pointer[[]model.TeamLiveState]

	log logger.Logger
}

var _ Store = (*LiveStore)(nil)

// NewLiveStore creates an empty store.
func NewLiveStore(opts ...Option) *LiveStore {
	s := &LiveStore{teams: make(map[string]model.TeamLiveState)}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("livestore")
	}
	empty := []model.TeamLiveState{}
	s.snapshot.Store(&empty)
	return s
}

// Apply implements Store.
func (s *LiveStore) Apply(teamID, teamName string, report model.Report, summary model.MetricsSummary) (model.TeamLiveState, bool) {
	candidate := bestrecord.Observe(report)

	s.mu.Lock()
	state, existed := s.teams[teamID]
	improved := bestrecord.Improves(state.Best, candidate)
	state.TeamID = teamID
	// A report that finishes after a newer one only contributes to Best.
	if !existed || !report.SubmittedAt.Before(state.LastUpdate) {
		state.TeamName = teamName
		state.LastUpdate = report.SubmittedAt
		state.Latest = report
		state.Live = summary
	}
	state.Best = bestrecord.Merge(state.Best, candidate)
	s.teams[teamID] = state
	s.publishLocked()
	s.mu.Unlock()

	if !existed {
		metrics.UpdateLiveTeams(s.Count())
	}
	if improved {
		s.log.Debug(context.Background(), "best records improved",
			logger.String("team_id", teamID),
			logger.Float64("best_qps", state.Best.QPS),
			logger.Float64("best_latency", state.Best.Latency),
		)
	}
	return state, improved
}

// Seed implements Store.
func (s *LiveStore) Seed(in model.TeamLiveState) {
	s.mu.Lock()
	state, existed := s.teams[in.TeamID]
	if !existed || in.LastUpdate.After(state.LastUpdate) {
		best := state.Best
		state = in
		state.Best = bestrecord.Merge(best, in.Best)
	} else {
		state.Best = bestrecord.Merge(state.Best, in.Best)
	}
	s.teams[in.TeamID] = state
	s.publishLocked()
	s.mu.Unlock()

	if !existed {
		metrics.UpdateLiveTeams(s.Count())
	}
}

// MergeBest implements Store.
func (s *LiveStore) MergeBest(teamID string, best model.BestRecords) (model.BestRecords, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.teams[teamID]
	if !ok {
		return best, false
	}
	state.Best = bestrecord.Merge(state.Best, best)
	s.teams[teamID] = state
	s.publishLocked()
	return state.Best, true
}

// Get implements Store.
func (s *LiveStore) Get(teamID string) (model.TeamLiveState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.teams[teamID]
	return state, ok
}

// List implements Store.
func (s *LiveStore) List() []model.TeamLiveState {
	snap := *s.snapshot.Load()
	out := make([]model.TeamLiveState, len(snap))
	copy(out, snap)
	return out
}

// Count implements Store.
func (s *LiveStore) Count() int {
	return len(*s.snapshot.Load())
}

// publishLocked rebuilds the sorted snapshot. Caller holds s.mu.
func (s *LiveStore) publishLocked() {
	snap := make([]model.TeamLiveState, 0, len(s.teams))
	for _, st := range s.teams {
		snap = append(snap, st)
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].TeamID < snap[j].TeamID })
	s.snapshot.Store(&snap)
}
