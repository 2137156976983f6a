package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/services"
)

// ListRunsResponse wraps a page of run history.
type ListRunsResponse struct {
	Runs    []*models.ScriptRun `json:"runs"`
	Total   int                 `json:"total"`
	Enabled bool                `json:"enabled"`
}

// RunsHandler serves the run history.
type RunsHandler struct {
	history services.RunHistoryService
	logger  *zap.Logger
}

// NewRunsHandler creates a new runs handler. history is nil when run
// history is disabled; the listing is then always empty.
func NewRunsHandler(history services.RunHistoryService, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{
		history: history,
		logger:  logger,
	}
}

// RegisterRoutes registers the runs handler's routes on the given mux.
func (h *RunsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", h.List)
}

// List handles GET /api/runs?file=&status=&since=&limit=&offset=
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response := ApiResponse{Success: true, Data: ListRunsResponse{Runs: []*models.ScriptRun{}}}
		if err := WriteJSON(w, http.StatusOK, response); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}

	runs, total, err := h.history.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list script runs", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list runs"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if runs == nil {
		runs = []*models.ScriptRun{}
	}

	response := ApiResponse{Success: true, Data: ListRunsResponse{Runs: runs, Total: total, Enabled: true}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *RunsHandler) parseFilters(w http.ResponseWriter, r *http.Request) (models.ScriptRunFilters, bool) {
	q := r.URL.Query()
	filters := models.ScriptRunFilters{
		FileName: q.Get("file"),
		Status:   models.RunStatus(q.Get("status")),
	}

	fail := func(code, message string) (models.ScriptRunFilters, bool) {
		if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return models.ScriptRunFilters{}, false
	}

	switch filters.Status {
	case "", models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusRejected:
	default:
		return fail("invalid_status", "Status must be succeeded, failed or rejected")
	}

	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fail("invalid_since", "Since must be an RFC 3339 timestamp")
		}
		filters.Since = &since
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return fail("invalid_limit", "Limit must be a non-negative integer")
		}
		filters.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return fail("invalid_offset", "Offset must be a non-negative integer")
		}
		filters.Offset = n
	}
	return filters, true
}
