package mssql

import (
	"database/sql"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// namedArgs converts bound parameters to sql.Named arguments so the script
// body can reference them as @Name.
func namedArgs(params []models.BoundParameter) []any {
	args := make([]any, 0, len(params))
	for _, p := range params {
		args = append(args, sql.Named(p.Name, driverValue(p)))
	}
	return args
}

// driverValue picks the driver type matching the declared SQL type, so the
// server does not have to convert (and index seeks on VARCHAR columns survive).
func driverValue(p models.BoundParameter) any {
	if p.Value == nil {
		return nil
	}

	base := baseTypeName(p.SQLType)
	switch v := p.Value.(type) {
	case time.Time:
		switch base {
		case "DATE":
			return civil.DateOf(v)
		case "TIME":
			return civil.TimeOf(v)
		case "DATETIME", "DATETIME2", "SMALLDATETIME":
			return civil.DateTimeOf(v)
		}
		return v

	case string:
		switch base {
		case "VARCHAR", "CHAR", "TEXT":
			return mssql.VarChar(v)
		}
		return v

	case decimal.Decimal:
		// sent as text; the server converts to the declared precision
		return v.String()
	}
	return p.Value
}

// baseTypeName returns the upper-cased type keyword without arguments.
func baseTypeName(sqlType string) string {
	s := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexAny(s, "( \t"); i >= 0 {
		s = s[:i]
	}
	return s
}
