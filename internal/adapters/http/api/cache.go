package api

import (
	"context"
	"net/http"

	"github.com/okian/benchboard/internal/domain/model"
)

// CacheDependencies defines the interface for cache inspection.
type CacheDependencies interface {
	GetCacheDiagnostics(ctx context.Context) map[string]model.CacheDiagnostics
}

// CacheHandler exposes the best-record cache state.
type CacheHandler struct {
	deps CacheDependencies
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(deps CacheDependencies) *CacheHandler {
	return &CacheHandler{deps: deps}
}

// HandleDiagnostics handles GET /api/cache/diagnostics requests.
func (h *CacheHandler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.GetCacheDiagnostics(r.Context()))
}
