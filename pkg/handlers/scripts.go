package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ParameterResponse describes one script parameter for form rendering.
type ParameterResponse struct {
	Name        string `json:"name" yaml:"name"`
	SQLType     string `json:"sql_type" yaml:"sql_type"`
	Category    string `json:"category" yaml:"category"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Tooltip     string `json:"tooltip" yaml:"-"`
	Required    bool   `json:"required" yaml:"required"`
	// DefaultKind is "absent", "null" or "typed".
	DefaultKind string  `json:"default_kind" yaml:"default_kind"`
	Default     *string `json:"default,omitempty" yaml:"default,omitempty"`
	MaxLength   *int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Precision   *int    `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale       *int    `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// ScriptSummary is one entry of the script listing.
type ScriptSummary struct {
	FileName       string   `json:"file_name"`
	ParameterCount int      `json:"parameter_count"`
	RequiredCount  int      `json:"required_count"`
	Warnings       []string `json:"warnings,omitempty"`
}

// ListScriptsResponse wraps the script listing.
type ListScriptsResponse struct {
	Scripts []ScriptSummary `json:"scripts"`
}

// ScriptResponse describes one analyzed script.
type ScriptResponse struct {
	FileName   string              `json:"file_name" yaml:"file_name"`
	Parameters []ParameterResponse `json:"parameters" yaml:"parameters"`
	SQL        string              `json:"sql" yaml:"sql"`
	Warnings   []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValuesRequest is the body of the validate endpoint.
type ValuesRequest struct {
	Values map[string]any `json:"values"`
}

// ValidateScriptResponse holds per-parameter validation outcomes.
type ValidateScriptResponse struct {
	Valid      bool                      `json:"valid"`
	Parameters []services.ParameterCheck `json:"parameters"`
}

// ============================================================================
// Handler
// ============================================================================

// ScriptsHandler handles script catalog and execution requests.
type ScriptsHandler struct {
	catalog services.ScriptCatalog
	runner  services.QueryRunner
	logger  *zap.Logger
}

// NewScriptsHandler creates a new scripts handler.
func NewScriptsHandler(catalog services.ScriptCatalog, runner services.QueryRunner, logger *zap.Logger) *ScriptsHandler {
	return &ScriptsHandler{
		catalog: catalog,
		runner:  runner,
		logger:  logger,
	}
}

// RegisterRoutes registers the scripts handler's routes on the given mux.
// scriptMiddleware wraps the validate and run endpoints.
func (h *ScriptsHandler) RegisterRoutes(mux *http.ServeMux, scriptMiddleware func(http.Handler) http.Handler) {
	base := "/api/scripts"

	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("GET "+base+"/{name}", h.Get)
	mux.Handle("POST "+base+"/{name}/validate", scriptMiddleware(http.HandlerFunc(h.Validate)))
	mux.Handle("POST "+base+"/{name}/run", scriptMiddleware(http.HandlerFunc(h.Run)))
}

// List handles GET /api/scripts
func (h *ScriptsHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.catalog.AnalyzeAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scripts", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list scripts"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	data := ListScriptsResponse{
		Scripts: make([]ScriptSummary, len(infos)),
	}
	for i, info := range infos {
		required := 0
		for _, p := range info.Parameters {
			if p.IsRequired() {
				required++
			}
		}
		data.Scripts[i] = ScriptSummary{
			FileName:       info.FileName,
			ParameterCount: len(info.Parameters),
			RequiredCount:  required,
			Warnings:       info.Warnings,
		}
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/scripts/{name}
// With ?format=yaml the descriptor is returned as a bare YAML document.
func (h *ScriptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, ok := h.analyze(w, r)
	if !ok {
		return
	}

	data := toScriptResponse(info)

	if r.URL.Query().Get("format") == "yaml" {
		if err := WriteYAML(w, http.StatusOK, data); err != nil {
			h.logger.Error("Failed to write YAML response", zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to encode script"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Validate handles POST /api/scripts/{name}/validate
func (h *ScriptsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValuesRequest
	if err := decodeJSON(r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	info, ok := h.analyze(w, r)
	if !ok {
		return
	}

	checks := services.ValidateParameters(info.Parameters, req.Values)
	valid := true
	for _, c := range checks {
		if !c.IsValid {
			valid = false
			break
		}
	}

	response := ApiResponse{Success: true, Data: ValidateScriptResponse{Valid: valid, Parameters: checks}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Run handles POST /api/scripts/{name}/run
func (h *ScriptsHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req services.RunRequest
	if err := decodeJSON(r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Limit < 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must not be negative"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	name := r.PathValue("name")
	result, err := h.runner.Run(r.Context(), name, req)
	if err != nil {
		h.writeRunError(w, name, err)
		return
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// analyze loads the script named in the path, writing the error response on failure.
func (h *ScriptsHandler) analyze(w http.ResponseWriter, r *http.Request) (*models.QueryInfo, bool) {
	name := r.PathValue("name")
	info, err := h.catalog.Analyze(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Script not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		h.logger.Error("Failed to analyze script",
			zap.String("file", name),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to read script"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return info, true
}

// writeRunError maps runner errors onto HTTP responses.
func (h *ScriptsHandler) writeRunError(w http.ResponseWriter, name string, err error) {
	var (
		status  int
		code    string
		message string
		data    any
	)

	var verr *services.ParameterValidationError
	switch {
	case errors.As(err, &verr):
		status, code, message = http.StatusBadRequest, "invalid_parameters", err.Error()
		data = verr.Failures
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Script not found"
	case errors.Is(err, apperrors.ErrInjectionDetected):
		status, code, message = http.StatusBadRequest, "injection_detected", err.Error()
	case errors.Is(err, apperrors.ErrNoDatasource):
		status, code, message = http.StatusServiceUnavailable, "no_datasource", "No datasource is available"
	default:
		h.logger.Error("Failed to run script",
			zap.String("file", name),
			zap.Error(err))
		status, code, message = http.StatusInternalServerError, "execution_failed", err.Error()
	}

	if data != nil {
		response := ApiResponse{Success: false, Data: data, Error: code, Message: message}
		if err := WriteJSON(w, status, response); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func toScriptResponse(info *models.QueryInfo) ScriptResponse {
	params := make([]ParameterResponse, len(info.Parameters))
	for i, p := range info.Parameters {
		params[i] = toParameterResponse(p)
	}
	return ScriptResponse{
		FileName:   info.FileName,
		Parameters: params,
		SQL:        info.SQLWithoutDeclares,
		Warnings:   info.Warnings,
	}
}

func toParameterResponse(p *models.ParameterDescriptor) ParameterResponse {
	resp := ParameterResponse{
		Name:        p.Name,
		SQLType:     p.SQLType,
		Category:    string(p.Category),
		DisplayName: p.GetDisplayName(),
		Description: p.Description,
		Tooltip:     p.Tooltip(),
		Required:    p.IsRequired(),
		DefaultKind: p.Default.Kind().String(),
		MaxLength:   p.MaxLength,
		Precision:   p.Precision,
		Scale:       p.Scale,
	}
	if p.HasDefault() {
		def := p.Default.String()
		resp.Default = &def
	}
	return resp
}
