package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/repositories"
)

// mockRunHistoryRepo is an in-memory RunHistoryRepository.
type mockRunHistoryRepo struct {
	mu        sync.Mutex
	runs      []*models.ScriptRun
	createErr error
}

func newMockRunHistoryRepo() *mockRunHistoryRepo {
	return &mockRunHistoryRepo{}
}

var _ repositories.RunHistoryRepository = (*mockRunHistoryRepo)(nil)

func (m *mockRunHistoryRepo) Create(_ context.Context, run *models.ScriptRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now()
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRunHistoryRepo) List(_ context.Context, filters models.ScriptRunFilters) ([]*models.ScriptRun, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.ScriptRun
	for _, r := range m.runs {
		if filters.FileName != "" && r.FileName != filters.FileName {
			continue
		}
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		if filters.Since != nil && r.ExecutedAt.Before(*filters.Since) {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (m *mockRunHistoryRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.runs[:0]
	var deleted int64
	for _, r := range m.runs {
		if r.ExecutedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.runs = kept
	return deleted, nil
}

func (m *mockRunHistoryRepo) all() []*models.ScriptRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ScriptRun(nil), m.runs...)
}

// mockQueryExecutor records the last Query call and returns a canned result.
type mockQueryExecutor struct {
	result  *datasource.QueryExecutionResult
	err     error
	connErr error

	// block makes Query wait for context cancellation.
	block bool

	lastScript string
	lastParams []models.BoundParameter
	lastLimit  int
	calls      int
}

var _ datasource.QueryExecutor = (*mockQueryExecutor)(nil)

func (m *mockQueryExecutor) Query(ctx context.Context, script string, params []models.BoundParameter, limit int) (*datasource.QueryExecutionResult, error) {
	m.calls++
	m.lastScript = script
	m.lastParams = params
	m.lastLimit = limit

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &datasource.QueryExecutionResult{
		Columns: []datasource.ColumnInfo{},
		Rows:    []map[string]any{},
	}, nil
}

func (m *mockQueryExecutor) TestConnection(context.Context) error { return m.connErr }

func (m *mockQueryExecutor) Close() error { return nil }
