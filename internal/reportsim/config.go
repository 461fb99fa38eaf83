// Package reportsim generates mock benchmark reports, submits them for a set
// of teams and verifies the best records the service derives from them.
package reportsim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Teams      int           // Number of simulated teams
	Rounds     int           // Reports submitted per team
	Workers    int           // Concurrent submissions
	Interval   time.Duration // Pause between rounds
	Timeout    time.Duration // HTTP request timeout
	TeamPrefix string        // Team id prefix; ids get a random suffix
	Seed       uint64        // Seed for the stats generator; 0 picks one
	Verbose    bool          // Log every submission
}

// Summary holds run statistics.
type Summary struct {
	ReportsSubmitted int
	ReportsFailed    int
	TeamsVerified    int
	Mismatches       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// expectation is what a team's best records must be after the run.
type expectation struct {
	teamID     string
	teamName   string
	bestQPS    float64
	hasQPS     bool
	bestLat    float64
	hasLatency bool
}
