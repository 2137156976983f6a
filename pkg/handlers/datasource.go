package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/services"
)

// connectionTestTimeout bounds GET /api/datasource/test.
const connectionTestTimeout = 30 * time.Second

// TestConnectionResponse for connection test result.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DatasourceHandler reports on the configured datasource.
type DatasourceHandler struct {
	runner services.QueryRunner
	dsType string
	logger *zap.Logger
}

// NewDatasourceHandler creates a new datasource handler.
func NewDatasourceHandler(runner services.QueryRunner, dsType string, logger *zap.Logger) *DatasourceHandler {
	return &DatasourceHandler{
		runner: runner,
		dsType: dsType,
		logger: logger,
	}
}

// RegisterRoutes registers the datasource handler's routes on the given mux.
func (h *DatasourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasource/test", h.TestConnection)
	mux.HandleFunc("GET /api/datasource/types", h.ListTypes)
}

// TestConnection handles GET /api/datasource/test
// A failed connection is reported in the body with status 200; only a
// missing datasource is an error status.
func (h *DatasourceHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), connectionTestTimeout)
	defer cancel()

	result := TestConnectionResponse{Success: true, Type: h.dsType, Message: "Connection successful"}
	if err := h.runner.TestConnection(ctx); err != nil {
		if errors.Is(err, apperrors.ErrNoDatasource) {
			if err := ErrorResponse(w, http.StatusServiceUnavailable, "no_datasource", "No datasource is available"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Warn("Datasource connection test failed",
			zap.String("type", h.dsType),
			zap.String("error", logging.SanitizeError(err)))
		result = TestConnectionResponse{Success: false, Type: h.dsType, Message: logging.SanitizeError(err)}
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListTypes handles GET /api/datasource/types
func (h *DatasourceHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: datasource.RegisteredAdapters()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
