package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/database"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// RunHistoryRepository provides data access for recorded script runs.
type RunHistoryRepository interface {
	Create(ctx context.Context, run *models.ScriptRun) error
	List(ctx context.Context, filters models.ScriptRunFilters) ([]*models.ScriptRun, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type runHistoryRepository struct {
	db *database.DB
}

func NewRunHistoryRepository(db *database.DB) RunHistoryRepository {
	return &runHistoryRepository{db: db}
}

var _ RunHistoryRepository = (*runHistoryRepository)(nil)

func (r *runHistoryRepository) Create(ctx context.Context, run *models.ScriptRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.ExecutedAt.IsZero() {
		run.ExecutedAt = time.Now().UTC()
	}

	params := run.Parameters
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	query := `
		INSERT INTO sqlrunner_script_runs (
			id, file_name, parameters,
			status, error_message,
			executed_at, duration_ms, row_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		run.ID,
		run.FileName,
		paramsJSON,
		string(run.Status),
		run.ErrorMessage,
		run.ExecutedAt,
		run.DurationMs,
		run.RowCount,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create script run: %w", err)
	}

	return nil
}

func (r *runHistoryRepository) List(ctx context.Context, filters models.ScriptRunFilters) ([]*models.ScriptRun, int, error) {
	limit := filters.Limit
	if limit <= 0 || limit > maxRunListLimit {
		limit = defaultRunListLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filters.FileName != "" {
		conditions = append(conditions, fmt.Sprintf("file_name = $%d", argIdx))
		args = append(args, filters.FileName)
		argIdx++
	}

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(filters.Status))
		argIdx++
	}

	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filters.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	// Count
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM sqlrunner_script_runs WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count script runs: %w", err)
	}

	// Data
	dataQuery := fmt.Sprintf(`
		SELECT id, file_name, parameters,
		       status, error_message,
		       executed_at, duration_ms, row_count,
		       created_at
		FROM sqlrunner_script_runs
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list script runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.ScriptRun, 0)
	for rows.Next() {
		var run models.ScriptRun
		var paramsJSON []byte
		var status string

		err := rows.Scan(
			&run.ID,
			&run.FileName,
			&paramsJSON,
			&status,
			&run.ErrorMessage,
			&run.ExecutedAt,
			&run.DurationMs,
			&run.RowCount,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan script run: %w", err)
		}
		run.Status = models.RunStatus(status)

		if len(paramsJSON) > 0 && string(paramsJSON) != "null" {
			var params map[string]any
			if jsonErr := json.Unmarshal(paramsJSON, &params); jsonErr == nil {
				run.Parameters = params
			}
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating script runs: %w", err)
	}

	return runs, total, nil
}

func (r *runHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sqlrunner_script_runs WHERE created_at < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old script runs: %w", err)
	}

	return tag.RowsAffected(), nil
}
