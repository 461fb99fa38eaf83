package reportsim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/okian/benchboard/internal/domain/bestrecord"
	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
)

// Default run configuration constants.
const (
	defaultTeams      = 5
	defaultRounds     = 10
	defaultWorkers    = 4
	defaultTimeout    = 10 * time.Second
	defaultTeamPrefix = "team"
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.Teams < 1 {
		out.Teams = defaultTeams
	}
	if out.Rounds < 1 {
		out.Rounds = defaultRounds
	}
	if out.Workers < 1 {
		out.Workers = defaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	if out.TeamPrefix == "" {
		out.TeamPrefix = defaultTeamPrefix
	}
	if out.Seed == 0 {
		out.Seed = uint64(time.Now().UnixNano())
	}
	return out
}

// Run submits Rounds reports for each of Teams teams and then checks that
// every team's best records match the reports it sent. Mismatches are
// collected into the returned error; the summary is valid either way.
func Run(ctx context.Context, config *Config) (*Summary, error) {
	cfg := config.withDefaults()
	log := logger.Get().Named("reportsim")
	summary := &Summary{StartTime: time.Now()}

	log.Info(ctx, "starting report simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return summary, fmt.Errorf("service health check failed: %w", err)
	}

	teams := make([]*expectation, cfg.Teams)
	for i := range teams {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		teams[i] = &expectation{
			teamID:   fmt.Sprintf("%s-%02d-%s", cfg.TeamPrefix, i+1, suffix),
			teamName: fmt.Sprintf("Team %d", i+1),
		}
	}

	gen := NewGenerator(cfg.Seed)
	var mu sync.Mutex
	for round := range cfg.Rounds {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, team := range teams {
			stats := gen.Stats()
			g.Go(func() error {
				_, err := client.Submit(gctx, team.teamID, team.teamName, stats)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.ReportsFailed++
					log.Warn(gctx, "submit failed", logger.String("team_id", team.teamID), logger.Error(err))
					return nil
				}
				summary.ReportsSubmitted++
				team.observe(stats)
				if cfg.Verbose {
					log.Info(gctx, "report submitted",
						logger.String("team_id", team.teamID),
						logger.Int("round", round+1),
						logger.Float64("qps", stats.CompletedQPS()),
					)
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if cfg.Interval > 0 && round < cfg.Rounds-1 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
	}

	var result *multierror.Error
	for _, team := range teams {
		if err := verifyTeam(ctx, client, team); err != nil {
			summary.Mismatches++
			result = multierror.Append(result, err)
			continue
		}
		summary.TeamsVerified++
	}

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	displaySummary(ctx, log, summary)
	return summary, result.ErrorOrNil()
}

func (e *expectation) observe(stats model.Stats) {
	b := bestrecord.Observe(model.Report{Stats: stats})
	if b.HasQPS && (!e.hasQPS || b.QPS > e.bestQPS) {
		e.bestQPS, e.hasQPS = b.QPS, true
	}
	if b.HasLatency && (!e.hasLatency || b.Latency < e.bestLat) {
		e.bestLat, e.hasLatency = b.Latency, true
	}
}

func verifyTeam(ctx context.Context, client *Client, e *expectation) error {
	got, err := client.Best(ctx, e.teamID)
	if err != nil {
		return fmt.Errorf("team %s: %w", e.teamID, err)
	}
	if got.HasQPS != e.hasQPS || got.QPS != e.bestQPS {
		return fmt.Errorf("%w: team %s qps got %v want %v", ErrMismatch, e.teamID, got.QPS, e.bestQPS)
	}
	if got.HasLatency != e.hasLatency || got.Latency != e.bestLat {
		return fmt.Errorf("%w: team %s latency got %v want %v", ErrMismatch, e.teamID, got.Latency, e.bestLat)
	}
	return nil
}

func displaySummary(ctx context.Context, log logger.Logger, s *Summary) {
	var perSecond float64
	if s.Duration > 0 {
		perSecond = float64(s.ReportsSubmitted) / s.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("reportsSubmitted", s.ReportsSubmitted),
		logger.Int("reportsFailed", s.ReportsFailed),
		logger.Int("teamsVerified", s.TeamsVerified),
		logger.Int("mismatches", s.Mismatches),
		logger.Duration("duration", s.Duration),
		logger.Float64("reportsPerSecond", perSecond),
	)
}
