package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// ConnectionTester tests database connectivity.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials.
	// Returns nil if connection is healthy, error otherwise.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// MaxQueryLimit is the hard cap on rows returned by Query.
// This protects against unbounded scripts that could exhaust server memory.
const MaxQueryLimit = 1000

// EffectiveLimit applies the row cap rules:
//   - limit <= 0: uses MaxQueryLimit
//   - limit > MaxQueryLimit: capped to MaxQueryLimit
//   - otherwise: uses limit
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

// QueryExecutor runs a script body against a datasource.
//
// The script is the declaration-free SQL; parameters are referenced in it as
// @Name and are bound by the driver, never interpolated. Scripts may contain
// CTEs or several statements, so executors do not wrap them. The row cap is
// applied while reading: the first result set that has columns is returned and
// reading stops after limit rows.
type QueryExecutor interface {
	ConnectionTester

	// Query executes the script with the bound parameters and returns at most
	// EffectiveLimit(limit) rows.
	Query(ctx context.Context, script string, params []models.BoundParameter, limit int) (*QueryExecutionResult, error)
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "INTEGER", "VARCHAR", "TIMESTAMP")
}

// QueryExecutionResult holds the results from executing a script.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	// Truncated is true when the script produced more rows than the limit.
	Truncated bool `json:"truncated"`
}
