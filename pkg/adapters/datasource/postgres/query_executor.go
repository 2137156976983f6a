package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// QueryExecutor provides PostgreSQL script execution.
type QueryExecutor struct {
	config *Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewQueryExecutor creates a PostgreSQL query executor with its own pool.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*QueryExecutor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &QueryExecutor{
		config: cfg,
		pool:   pool,
		logger: logger.Named("postgres"),
	}, nil
}

// Query runs the script with bound parameters as pgx named arguments.
// Scripts with parameters go through the extended protocol and must hold a
// single statement.
func (e *QueryExecutor) Query(ctx context.Context, script string, params []models.BoundParameter, limit int) (*datasource.QueryExecutionResult, error) {
	effectiveLimit := datasource.EffectiveLimit(limit)

	var args []any
	if len(params) > 0 {
		args = []any{namedArgs(script, params)}
	}

	rows, err := e.pool.Query(ctx, script, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: fd.Name,
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == effectiveLimit {
			truncated = true
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = convertValue(values[i])
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

// TestConnection verifies the database is reachable with valid credentials
// and that the configured database is the one we are connected to.
func (e *QueryExecutor) TestConnection(ctx context.Context) error {
	if err := e.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := e.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}

	// PostgreSQL names are case-sensitive; compare loosely to match SQL Server behavior
	if !strings.EqualFold(currentDB, e.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", e.config.Database, currentDB)
	}
	return nil
}

// Close releases the pool.
func (e *QueryExecutor) Close() error {
	if e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// convertValue turns pgx values without a useful JSON form into ones that have it.
func convertValue(val any) any {
	switch v := val.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		dv, err := v.Value()
		if err != nil {
			return nil
		}
		if s, ok := dv.(string); ok {
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
			return s
		}
		return dv
	case pgtype.Time:
		if !v.Valid {
			return nil
		}
		us := v.Microseconds
		return fmt.Sprintf("%02d:%02d:%02d", us/3_600_000_000, us/60_000_000%60, us/1_000_000%60)
	}
	return val
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to human-readable type names.
// This covers the most common types; unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case pgtype.BoolOID:
		return "BOOL"
	case pgtype.ByteaOID:
		return "BYTEA"
	case pgtype.QCharOID:
		return "CHAR"
	case pgtype.Int8OID:
		return "INT8"
	case pgtype.Int2OID:
		return "INT2"
	case pgtype.Int4OID:
		return "INT4"
	case pgtype.TextOID:
		return "TEXT"
	case pgtype.OIDOID:
		return "OID"
	case pgtype.JSONOID:
		return "JSON"
	case 142:
		return "XML"
	case pgtype.Float4OID:
		return "FLOAT4"
	case pgtype.Float8OID:
		return "FLOAT8"
	case 790:
		return "MONEY"
	case pgtype.BPCharOID:
		return "BPCHAR"
	case pgtype.VarcharOID:
		return "VARCHAR"
	case pgtype.DateOID:
		return "DATE"
	case pgtype.TimeOID:
		return "TIME"
	case pgtype.TimestampOID:
		return "TIMESTAMP"
	case pgtype.TimestamptzOID:
		return "TIMESTAMPTZ"
	case pgtype.IntervalOID:
		return "INTERVAL"
	case 1266:
		return "TIMETZ"
	case pgtype.NumericOID:
		return "NUMERIC"
	case pgtype.UUIDOID:
		return "UUID"
	case pgtype.JSONBOID:
		return "JSONB"
	default:
		return "UNKNOWN"
	}
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
