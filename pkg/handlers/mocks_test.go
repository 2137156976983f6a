package handlers

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/services"
)

// mockQueryRunner returns canned results and records the last request.
type mockQueryRunner struct {
	result  *services.RunResult
	err     error
	connErr error

	lastName string
	lastReq  services.RunRequest
}

var _ services.QueryRunner = (*mockQueryRunner)(nil)

func (m *mockQueryRunner) Run(_ context.Context, name string, req services.RunRequest) (*services.RunResult, error) {
	m.lastName = name
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockQueryRunner) TestConnection(context.Context) error { return m.connErr }

// mockRunHistoryService serves a fixed set of runs.
type mockRunHistoryService struct {
	runs        []*models.ScriptRun
	err         error
	lastFilters models.ScriptRunFilters
}

var _ services.RunHistoryService = (*mockRunHistoryService)(nil)

func (m *mockRunHistoryService) Record(context.Context, *models.ScriptRun) error { return nil }

func (m *mockRunHistoryService) List(_ context.Context, filters models.ScriptRunFilters) ([]*models.ScriptRun, int, error) {
	m.lastFilters = filters
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.runs, len(m.runs), nil
}

func (m *mockRunHistoryService) PruneOlderThan(context.Context, int) (int64, error) { return 0, nil }

func (m *mockRunHistoryService) RunScheduler(context.Context, int, time.Duration) {}
