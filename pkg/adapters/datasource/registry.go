package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
)

// DatasourceAdapterInfo describes a registered adapter.
type DatasourceAdapterInfo struct {
	Type        string `json:"type"`         // "mssql", "postgres"
	DisplayName string `json:"display_name"` // "Microsoft SQL Server"
	Description string `json:"description"`  // "Connect to SQL Server 2019+"
}

// QueryExecutorFactory builds an executor from a generic config map.
type QueryExecutorFactory func(ctx context.Context, config map[string]any, logger *zap.Logger) (QueryExecutor, error)

// DatasourceAdapterRegistration contains info + factory for creating executors.
type DatasourceAdapterRegistration struct {
	Info                 DatasourceAdapterInfo
	QueryExecutorFactory QueryExecutorFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DatasourceAdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DatasourceAdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []DatasourceAdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasourceAdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetQueryExecutorFactory returns the query executor factory for a datasource type.
// Returns nil if type is not registered.
func GetQueryExecutorFactory(dsType string) QueryExecutorFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dsType]; ok {
		return reg.QueryExecutorFactory
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// NewQueryExecutor creates an executor for the given datasource type.
func NewQueryExecutor(ctx context.Context, dsType string, config map[string]any, logger *zap.Logger) (QueryExecutor, error) {
	factory := GetQueryExecutorFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnsupportedType, dsType)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return factory(ctx, config, logger)
}
