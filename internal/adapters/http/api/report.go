package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/metrics"
)

// Request header names and limits for report submission.
const (
	headerTeamID   = "X-Team-ID"
	headerTeamName = "X-Team-Name"
	maxReportBytes = 1 << 20
)

// ReportDependencies defines the interface for report ingestion.
type ReportDependencies interface {
	SubmitReport(ctx context.Context, teamID, teamName string, stats model.Stats) (model.UpdateEvent, error)
}

// ReportHandler handles report submissions.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

type submitResponse struct {
	Message string `json:"message"`
	TeamID  string `json:"teamId"`
	EventID string `json:"eventId"`
}

// HandleSubmit handles POST /api/stats/report requests. The team is named by
// the X-Team-ID header; X-Team-Name is optional and URL-encoded.
func (h *ReportHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_report"

	teamID := strings.TrimSpace(r.Header.Get(headerTeamID))
	if teamID == "" {
		metrics.RecordReportRejected("missing_team_id")
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissingTeamID))
		return
	}
	teamName := decodeTeamName(r.Header.Get(headerTeamName))

	var stats model.Stats
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBytes)).Decode(&stats); err != nil {
		metrics.RecordReportRejected("decode")
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := stats.Validate(); err != nil {
		metrics.RecordReportRejected("validation")
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrBadRequest, err))
		return
	}

	ev, err := h.deps.SubmitReport(r.Context(), teamID, teamName, stats)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message: "Stats submitted successfully",
		TeamID:  teamID,
		EventID: ev.EventID,
	})
}

// decodeTeamName URL-decodes the header value, falling back to the raw value
// when it is not valid percent-encoding.
func decodeTeamName(raw string) string {
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(name)
}
