package mssql

import (
	"strings"

	"github.com/google/uuid"
)

// mapSQLServerType maps SQL Server type names to standard type names.
// This provides a consistent interface across different database adapters.
func mapSQLServerType(sqlServerType string) string {
	sqlServerType = strings.ToUpper(sqlServerType)

	switch sqlServerType {
	// Integer types
	case "TINYINT":
		return "TINYINT"
	case "SMALLINT":
		return "SMALLINT"
	case "INT":
		return "INTEGER"
	case "BIGINT":
		return "BIGINT"

	// Decimal types
	case "DECIMAL", "NUMERIC":
		return "NUMERIC"
	case "MONEY", "SMALLMONEY":
		return "MONEY"
	case "FLOAT":
		return "DOUBLE PRECISION"
	case "REAL":
		return "REAL"

	// String types
	case "CHAR", "NCHAR":
		return "CHAR"
	case "VARCHAR", "NVARCHAR":
		return "VARCHAR"
	case "TEXT", "NTEXT":
		return "TEXT"

	// Binary types
	case "BINARY", "VARBINARY":
		return "BYTEA"
	case "IMAGE":
		return "BLOB"

	// Date/Time types
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return "TIMESTAMP"
	case "DATETIMEOFFSET":
		return "TIMESTAMP WITH TIME ZONE"

	// Boolean
	case "BIT":
		return "BOOLEAN"

	// UUID/GUID
	case "UNIQUEIDENTIFIER":
		return "UUID"

	// JSON (SQL Server 2016+)
	case "JSON":
		return "JSON"

	// XML
	case "XML":
		return "XML"

	// Other types - return as-is
	default:
		return sqlServerType
	}
}

// isStringType returns true if the type is a string type in SQL Server.
func isStringType(sqlType string) bool {
	sqlType = strings.ToUpper(sqlType)
	stringTypes := []string{
		"CHAR", "NCHAR", "VARCHAR", "NVARCHAR",
		"TEXT", "NTEXT",
	}

	for _, t := range stringTypes {
		if sqlType == t {
			return true
		}
	}
	return false
}

// isDecimalType reports types the driver returns as decimal text in []byte.
func isDecimalType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// convertValue turns driver values into JSON-friendly values.
func convertValue(val any, dbType string) any {
	b, ok := val.([]byte)
	if !ok {
		return val
	}

	switch {
	case isStringType(dbType), isDecimalType(dbType):
		return string(b)
	case strings.EqualFold(dbType, "UNIQUEIDENTIFIER"):
		if s, ok := uniqueIdentifierString(b); ok {
			return s
		}
	}
	return b
}

// uniqueIdentifierString formats a UNIQUEIDENTIFIER. SQL Server stores the
// first three groups little-endian.
func uniqueIdentifierString(b []byte) (string, bool) {
	if len(b) != 16 {
		return "", false
	}
	var u uuid.UUID
	copy(u[:], b)
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	return u.String(), true
}
