package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

const customerScript = `-- @param Name "Customer Name"
DECLARE @Name NVARCHAR(100)
DECLARE @Top INT = 5
SELECT TOP (@Top) * FROM Customers WHERE Name = @Name
`

type runnerFixture struct {
	runner   QueryRunner
	executor *mockQueryExecutor
	repo     *mockRunHistoryRepo
}

func newRunnerFixture(t *testing.T, cfg RunnerConfig) *runnerFixture {
	t.Helper()
	dir := t.TempDir()
	writeScript(t, dir, "customers.sql", customerScript)

	executor := &mockQueryExecutor{}
	repo := newMockRunHistoryRepo()
	logger := zap.NewNop()

	return &runnerFixture{
		runner: NewQueryRunner(
			NewScriptCatalog(dir, logger),
			executor,
			NewRunHistoryService(repo, logger),
			cfg,
			logger,
		),
		executor: executor,
		repo:     repo,
	}
}

func TestQueryRunner_RunSucceeds(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{Timeout: time.Minute, MaxRows: 500})
	f.executor.result = &datasource.QueryExecutionResult{
		Columns:   []datasource.ColumnInfo{{Name: "Name", Type: "NVARCHAR"}},
		Rows:      []map[string]any{{"Name": "Contoso"}},
		RowCount:  1,
		Truncated: false,
	}

	result, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
		Values: map[string]any{"Name": "Contoso"},
	})
	require.NoError(t, err)

	assert.Equal(t, "customers.sql", result.FileName)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "Contoso", result.Rows[0]["Name"])
	require.Len(t, result.Parameters, 2)
	assert.Equal(t, int64(5), result.Parameters[1].Value)

	assert.NotContains(t, f.executor.lastScript, "DECLARE")
	assert.Contains(t, f.executor.lastScript, "SELECT TOP (@Top)")
	assert.Equal(t, 500, f.executor.lastLimit)

	runs := f.repo.all()
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, models.RunStatusSucceeded, runs[0].Status)
	require.NotNil(t, runs[0].RowCount)
	assert.Equal(t, 1, *runs[0].RowCount)
	assert.Equal(t, "Contoso", runs[0].Parameters["Name"])
}

func TestQueryRunner_LimitIsCapped(t *testing.T) {
	tests := []struct {
		name      string
		maxRows   int
		requested int
		want      int
	}{
		{name: "default uses configured max", maxRows: 200, requested: 0, want: 200},
		{name: "request below max", maxRows: 200, requested: 50, want: 50},
		{name: "request above max", maxRows: 200, requested: 5000, want: 200},
		{name: "no configured max", maxRows: 0, requested: 0, want: datasource.MaxQueryLimit},
		{name: "configured max above hard cap", maxRows: 50000, requested: 0, want: datasource.MaxQueryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunnerFixture(t, RunnerConfig{MaxRows: tt.maxRows})
			_, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
				Values: map[string]any{"Name": "x"},
				Limit:  tt.requested,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.executor.lastLimit)
		})
	}
}

func TestQueryRunner_InvalidParametersAreRejected(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{})

	_, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
		Values: map[string]any{"Top": "many"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameters)
	assert.Equal(t, 0, f.executor.calls)

	runs := f.repo.all()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusRejected, runs[0].Status)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Contains(t, *runs[0].ErrorMessage, "'Customer Name' is required")
}

func TestQueryRunner_InjectionIsRejected(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{})

	_, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
		Values: map[string]any{"Name": "x' OR '1'='1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInjectionDetected)

	var injErr *InjectionError
	require.True(t, errors.As(err, &injErr))
	require.Len(t, injErr.Results, 1)
	assert.Equal(t, "Name", injErr.Results[0].ParamName)

	assert.Equal(t, 0, f.executor.calls)
	runs := f.repo.all()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusRejected, runs[0].Status)
}

func TestQueryRunner_ExecutionFailureIsRecorded(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{})
	f.executor.err = errors.New("Invalid object name 'Customers'")

	_, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
		Values: map[string]any{"Name": "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid object name")

	runs := f.repo.all()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	assert.NotNil(t, runs[0].DurationMs)
}

func TestQueryRunner_Timeout(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{Timeout: 20 * time.Millisecond})
	f.executor.block = true

	_, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
		Values: map[string]any{"Name": "x"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")

	runs := f.repo.all()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
}

func TestQueryRunner_UnknownScript(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{})

	_, err := f.runner.Run(context.Background(), "missing.sql", RunRequest{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.repo.all())
}

func TestQueryRunner_NoDatasource(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "customers.sql", customerScript)
	runner := NewQueryRunner(NewScriptCatalog(dir, zap.NewNop()), nil, nil, RunnerConfig{}, zap.NewNop())

	_, err := runner.Run(context.Background(), "customers.sql", RunRequest{Values: map[string]any{"Name": "x"}})
	assert.ErrorIs(t, err, apperrors.ErrNoDatasource)
	assert.ErrorIs(t, runner.TestConnection(context.Background()), apperrors.ErrNoDatasource)
}

func TestQueryRunner_HistoryFailureDoesNotFailRun(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{})
	f.repo.createErr = errors.New("history database down")

	result, err := f.runner.Run(context.Background(), "customers.sql", RunRequest{
		Values: map[string]any{"Name": "x"},
	})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestQueryRunner_TestConnection(t *testing.T) {
	f := newRunnerFixture(t, RunnerConfig{})
	assert.NoError(t, f.runner.TestConnection(context.Background()))

	f.executor.connErr = errors.New("login failed")
	assert.EqualError(t, f.runner.TestConnection(context.Background()), "login failed")
}
