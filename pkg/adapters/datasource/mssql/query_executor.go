package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// QueryExecutor provides SQL Server script execution.
type QueryExecutor struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// NewQueryExecutor creates a SQL Server query executor and verifies the
// connection.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*QueryExecutor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	// Test the connection immediately
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &QueryExecutor{
		config: cfg,
		db:     db,
		logger: logger.Named("mssql"),
	}, nil
}

// Query runs the script with every bound parameter passed as sql.Named.
// See datasource.QueryExecutor for limit behavior.
func (e *QueryExecutor) Query(ctx context.Context, script string, params []models.BoundParameter, limit int) (*datasource.QueryExecutionResult, error) {
	effectiveLimit := datasource.EffectiveLimit(limit)

	rows, err := e.db.QueryContext(ctx, script, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	// Skip results of statements that return no columns (SET NOCOUNT, INSERT INTO #tmp, ...)
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	for len(columnNames) == 0 {
		if !rows.NextResultSet() {
			break
		}
		if columnNames, err = rows.Columns(); err != nil {
			return nil, fmt.Errorf("failed to get columns: %w", err)
		}
	}

	if len(columnNames) == 0 {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
		return &datasource.QueryExecutionResult{
			Columns: []datasource.ColumnInfo{},
			Rows:    []map[string]any{},
		}, nil
	}

	// Get column types for proper scanning
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnNames))
	for i, colName := range columnNames {
		columns[i] = datasource.ColumnInfo{
			Name: colName,
			Type: mapSQLServerType(columnTypes[i].DatabaseTypeName()),
		}
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == effectiveLimit {
			truncated = true
			break
		}

		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			rowMap[col] = convertValue(values[i], columnTypes[i].DatabaseTypeName())
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if truncated {
		e.logger.Debug("Result truncated",
			zap.Int("limit", effectiveLimit))
	}

	return &datasource.QueryExecutionResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// TestConnection verifies the database is reachable and the configured
// database is the one we are connected to.
func (e *QueryExecutor) TestConnection(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := e.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if !strings.EqualFold(currentDB, e.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", e.config.Database, currentDB)
	}

	return nil
}

// Close releases the connection pool.
func (e *QueryExecutor) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
