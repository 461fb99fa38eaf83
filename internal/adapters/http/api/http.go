// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/benchboard/internal/adapters/archive"
	"github.com/okian/benchboard/internal/adapters/repository"
	"github.com/okian/benchboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ReportDependencies
	TeamDependencies
	CacheDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	reportHandler *ReportHandler
	teamsHandler  *TeamsHandler
	cacheHandler  *CacheHandler
}

// NewServer creates a new API server with all handlers. maxHistoryLimit caps
// the limit query parameter of history requests.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxHistoryLimit int) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		reportHandler: NewReportHandler(deps),
		teamsHandler:  NewTeamsHandler(deps, maxHistoryLimit),
		cacheHandler:  NewCacheHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /api/stats/report", MetricsMiddleware(s.reportHandler.HandleSubmit, "report"))

	mux.HandleFunc("GET /api/teams", MetricsMiddleware(s.teamsHandler.HandleList, "teams"))
	mux.HandleFunc("GET /api/teams/{id}", MetricsMiddleware(s.teamsHandler.HandleGet, "team"))
	mux.HandleFunc("GET /api/teams/{id}/best", MetricsMiddleware(s.teamsHandler.HandleBest, "team_best"))
	mux.HandleFunc("GET /api/teams/{id}/history", MetricsMiddleware(s.teamsHandler.HandleHistory, "team_history"))
	mux.HandleFunc("GET /api/teams/{id}/history/summary", MetricsMiddleware(s.teamsHandler.HandleHistorySummary, "team_history_summary"))

	mux.HandleFunc("GET /api/cache/diagnostics", MetricsMiddleware(s.cacheHandler.HandleDiagnostics, "cache_diagnostics"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError maps core error kinds onto HTTP statuses.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, archive.ErrInvalidTeamID):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
