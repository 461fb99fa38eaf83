package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/benchboard/internal/domain/model"
)

// TeamDependencies defines the interface for team read operations.
type TeamDependencies interface {
	ListTeams(ctx context.Context) []model.TeamSummary
	GetLiveMetrics(ctx context.Context, teamID string) (model.TeamView, error)
	GetBestRecords(ctx context.Context, teamID string) (model.BestRecords, error)
	ListHistory(ctx context.Context, teamID string, limit, offset int) (model.HistoryPage, error)
	HistorySummary(ctx context.Context, teamID string) (model.HistorySummary, error)
}

// TeamsHandler handles team requests.
type TeamsHandler struct {
	deps     TeamDependencies
	maxLimit int
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies, maxLimit int) *TeamsHandler {
	return &TeamsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /api/teams requests.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ListTeams(r.Context()))
}

// HandleGet handles GET /api/teams/{id} requests.
func (h *TeamsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team"
	view, err := h.deps.GetLiveMetrics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleBest handles GET /api/teams/{id}/best requests.
func (h *TeamsHandler) HandleBest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team_best"
	best, err := h.deps.GetBestRecords(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

// HandleHistory handles GET /api/teams/{id}/history?limit=N&offset=M requests.
func (h *TeamsHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team_history"
	q := r.URL.Query()

	limit, ok := optionalInt(q.Get("limit"), 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	offset, ok := optionalInt(q.Get("offset"), 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	page, err := h.deps.ListHistory(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleHistorySummary handles GET /api/teams/{id}/history/summary requests.
func (h *TeamsHandler) HandleHistorySummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team_history_summary"
	sum, err := h.deps.HistorySummary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// optionalInt parses an optional query integer. An empty value yields 0; a
// present value must parse and be at least lowest.
func optionalInt(raw string, lowest int) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lowest {
		return 0, false
	}
	return n, true
}
