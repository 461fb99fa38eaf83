// Package repository holds the in-memory live state of every team.
package repository

import (
	"github.com/okian/benchboard/internal/domain/model"
)

// Store provides read/write access to team live state.
type Store interface {
	// Apply installs report as the team's latest and improves its best
	// records. It returns the resulting state and whether the best records
	// changed.
	Apply(teamID, teamName string, report model.Report, summary model.MetricsSummary) (model.TeamLiveState, bool)

	// Seed installs recovered state, keeping whichever values are better.
	Seed(state model.TeamLiveState)

	// MergeBest folds best records computed elsewhere into a known team.
	MergeBest(teamID string, best model.BestRecords) (model.BestRecords, bool)

	// Get returns the team's state. ok is false for unknown teams.
	Get(teamID string) (model.TeamLiveState, bool)

	// List returns every team ordered by team id.
	List() []model.TeamLiveState

	// Count returns the number of tracked teams.
	Count() int
}
