package model

import (
	"encoding/json"
	"time"
)

// TeamLiveState is the latest report of a team plus its running best records.
type TeamLiveState struct {
	TeamID     string
	TeamName   string
	LastUpdate time.Time
	Latest     Report
	Live       MetricsSummary
	Best       BestRecords
}

// TeamView is the live view returned for a single team.
type TeamView struct {
	TeamID     string         `json:"teamId"`
	TeamName   string         `json:"teamName"`
	LastUpdate time.Time      `json:"lastUpdate"`
	IsActive   bool           `json:"isActive"`
	Stats      Stats          `json:"stats"`
	Metrics    MetricsSummary `json:"metrics"`
	Best       BestRecords    `json:"best"`
}

// TeamSummary is one row of the team listing.
type TeamSummary struct {
	TeamID     string         `json:"teamId"`
	TeamName   string         `json:"teamName"`
	LastUpdate time.Time      `json:"lastUpdate"`
	IsActive   bool           `json:"isActive"`
	Metrics    MetricsSummary `json:"metrics"`
	Best       BestRecords    `json:"best"`
}

// HistoryEntry is one archived report with its computed metrics.
type HistoryEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	TeamName  string         `json:"teamName"`
	Stats     Stats          `json:"stats"`
	Metrics   MetricsSummary `json:"metrics"`
}

// HistoryPage is a page of a team's archive, newest first.
type HistoryPage struct {
	TeamID  string         `json:"teamId"`
	Records []HistoryEntry `json:"records"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"hasMore"`
}

// HistorySummary describes the extent of a team's archive.
type HistorySummary struct {
	TeamID       string     `json:"teamId"`
	TotalReports int        `json:"totalReports"`
	FirstReport  *time.Time `json:"firstReport"`
	LastReport   *time.Time `json:"lastReport"`
	RecentIDs    []string   `json:"recentIds"`
}

// UpdateEvent is emitted after every accepted report for the push collaborator.
type UpdateEvent struct {
	EventID     string
	TeamID      string
	TeamName    string
	LiveMetrics MetricsSummary
	Best        BestRecords
	Timestamp   time.Time
}

// MarshalJSON flattens the best records into the event body.
func (e UpdateEvent) MarshalJSON() ([]byte, error) {
	w := e.Best.wire()
	return json.Marshal(struct {
		EventID       string         `json:"eventId"`
		TeamID        string         `json:"teamId"`
		TeamName      string         `json:"teamName"`
		LiveMetrics   MetricsSummary `json:"liveMetrics"`
		BestQPS       float64        `json:"bestQps"`
		BestQPSAt     *time.Time     `json:"bestQpsAt"`
		BestLatency   *float64       `json:"bestLatency"`
		BestLatencyAt *time.Time     `json:"bestLatencyAt"`
		Timestamp     time.Time      `json:"timestamp"`
	}{
		EventID:       e.EventID,
		TeamID:        e.TeamID,
		TeamName:      e.TeamName,
		LiveMetrics:   e.LiveMetrics,
		BestQPS:       w.BestQPS,
		BestQPSAt:     w.BestQPSAt,
		BestLatency:   w.BestLatency,
		BestLatencyAt: w.BestLatencyAt,
		Timestamp:     e.Timestamp,
	})
}
