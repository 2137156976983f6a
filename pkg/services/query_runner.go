package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/sql"
)

// RunRequest holds the user-supplied values of one script run.
type RunRequest struct {
	Values map[string]any `json:"values"`
	Limit  int            `json:"limit,omitempty"` // 0 = configured maximum
}

// RunResult is the outcome of a successful script run.
type RunResult struct {
	RunID      uuid.UUID               `json:"run_id"`
	FileName   string                  `json:"file_name"`
	Columns    []datasource.ColumnInfo `json:"columns"`
	Rows       []map[string]any        `json:"rows"`
	RowCount   int                     `json:"row_count"`
	Truncated  bool                    `json:"truncated"`
	Parameters []models.BoundParameter `json:"parameters"`
	DurationMs int64                   `json:"duration_ms"`
}

// InjectionError reports the parameters whose text values look like SQL injection.
type InjectionError struct {
	Results []*sql.InjectionCheckResult
}

func (e *InjectionError) Error() string {
	names := make([]string, len(e.Results))
	for i, r := range e.Results {
		names[i] = r.ParamName
	}
	return fmt.Sprintf("potential SQL injection in parameter(s) %v", names)
}

func (e *InjectionError) Unwrap() error {
	return apperrors.ErrInjectionDetected
}

// RunnerConfig bounds script execution.
type RunnerConfig struct {
	Timeout time.Duration
	MaxRows int
}

// QueryRunner binds and executes catalog scripts against the datasource.
type QueryRunner interface {
	// Run analyzes the script, binds the supplied values and executes it.
	Run(ctx context.Context, name string, req RunRequest) (*RunResult, error)

	// TestConnection checks that the datasource is reachable.
	TestConnection(ctx context.Context) error
}

type queryRunner struct {
	catalog  ScriptCatalog
	executor datasource.QueryExecutor
	history  RunHistoryService
	config   RunnerConfig
	logger   *zap.Logger
}

// NewQueryRunner creates a runner. executor may be nil when the datasource
// could not be opened; runs then fail with ErrNoDatasource. history may be
// nil when run history is disabled.
func NewQueryRunner(
	catalog ScriptCatalog,
	executor datasource.QueryExecutor,
	history RunHistoryService,
	config RunnerConfig,
	logger *zap.Logger,
) QueryRunner {
	return &queryRunner{
		catalog:  catalog,
		executor: executor,
		history:  history,
		config:   config,
		logger:   logger.Named("query-runner"),
	}
}

var _ QueryRunner = (*queryRunner)(nil)

func (r *queryRunner) Run(ctx context.Context, name string, req RunRequest) (*RunResult, error) {
	info, err := r.catalog.Analyze(ctx, name)
	if err != nil {
		return nil, err
	}

	executedAt := time.Now().UTC()

	bound, err := BindParameters(info.Parameters, req.Values)
	if err != nil {
		r.record(ctx, name, req.Values, models.RunStatusRejected, executedAt, err, nil, nil)
		return nil, err
	}

	if results := sql.CheckAllParameters(suppliedText(bound)); len(results) > 0 {
		for _, res := range results {
			r.logger.Warn("SQL injection attempt detected",
				zap.String("file", name),
				zap.String("param_name", res.ParamName),
				zap.String("fingerprint", res.Fingerprint))
		}
		injErr := &InjectionError{Results: results}
		r.record(ctx, name, boundValues(bound), models.RunStatusRejected, executedAt, injErr, nil, nil)
		return nil, injErr
	}

	if r.executor == nil {
		return nil, apperrors.ErrNoDatasource
	}

	limit := r.effectiveLimit(req.Limit)

	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.executor.Query(runCtx, info.SQLWithoutDeclares, bound, limit)
	elapsed := time.Since(start)
	durationMs := int(elapsed.Milliseconds())

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("script timed out after %s: %w", r.config.Timeout, err)
		}
		r.logger.Error("Script execution failed",
			zap.String("file", name),
			zap.Duration("duration", elapsed),
			zap.String("error", logging.SanitizeError(err)))
		r.record(ctx, name, boundValues(bound), models.RunStatusFailed, executedAt, err, &durationMs, nil)
		return nil, fmt.Errorf("failed to execute script %q: %w", name, err)
	}

	run := r.record(ctx, name, boundValues(bound), models.RunStatusSucceeded, executedAt, nil, &durationMs, &result.RowCount)

	r.logger.Info("Script executed",
		zap.String("file", name),
		zap.Int("row_count", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", elapsed))

	return &RunResult{
		RunID:      run,
		FileName:   name,
		Columns:    result.Columns,
		Rows:       result.Rows,
		RowCount:   result.RowCount,
		Truncated:  result.Truncated,
		Parameters: bound,
		DurationMs: elapsed.Milliseconds(),
	}, nil
}

func (r *queryRunner) TestConnection(ctx context.Context) error {
	if r.executor == nil {
		return apperrors.ErrNoDatasource
	}
	return r.executor.TestConnection(ctx)
}

// effectiveLimit caps the requested row count at the configured maximum.
func (r *queryRunner) effectiveLimit(requested int) int {
	limit := requested
	if r.config.MaxRows > 0 && (limit <= 0 || limit > r.config.MaxRows) {
		limit = r.config.MaxRows
	}
	return datasource.EffectiveLimit(limit)
}

// record stores the run when history is enabled and returns its ID.
// Recording failures are logged and never fail the run.
func (r *queryRunner) record(
	ctx context.Context,
	name string,
	params map[string]any,
	status models.RunStatus,
	executedAt time.Time,
	runErr error,
	durationMs *int,
	rowCount *int,
) uuid.UUID {
	run := &models.ScriptRun{
		ID:         uuid.New(),
		FileName:   name,
		Parameters: params,
		Status:     status,
		ExecutedAt: executedAt,
		DurationMs: durationMs,
		RowCount:   rowCount,
	}
	if runErr != nil {
		msg := logging.SanitizeError(runErr)
		run.ErrorMessage = &msg
	}

	if r.history == nil {
		return run.ID
	}
	// The request context may already be cancelled after a timeout.
	if err := r.history.Record(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Error("Failed to record script run",
			zap.String("file", name),
			zap.Error(err))
	}
	return run.ID
}

// suppliedText returns the user-supplied text values. Defaults come from the
// script itself and are not checked.
func suppliedText(bound []models.BoundParameter) map[string]any {
	out := make(map[string]any)
	for _, bp := range bound {
		if bp.FromDefault || bp.Category != models.CategoryText {
			continue
		}
		out[bp.Name] = bp.Value
	}
	return out
}

func boundValues(bound []models.BoundParameter) map[string]any {
	out := make(map[string]any, len(bound))
	for _, bp := range bound {
		out[bp.Name] = bp.Value
	}
	return out
}
