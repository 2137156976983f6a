package sql

import (
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// ClassifySQLType maps a raw declared type such as "NVARCHAR(50)" or
// "decimal(10, 2)" to a parameter category and its facets.
// Unknown or unparsable types classify as text without facets.
func ClassifySQLType(rawType string) models.TypeInfo {
	base, args := splitSQLType(rawType)

	switch base {
	case "INT", "INTEGER", "SMALLINT", "TINYINT", "BIGINT":
		return models.TypeInfo{Category: models.CategoryInteger}

	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY", "FLOAT", "REAL":
		return models.TypeInfo{
			Category:  models.CategoryDecimal,
			Precision: typeArg(args, 0, false),
			Scale:     typeArg(args, 1, false),
		}

	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET", "TIME":
		return models.TypeInfo{Category: models.CategoryTemporal}

	case "BIT":
		return models.TypeInfo{Category: models.CategoryBoolean}

	case "NVARCHAR", "VARCHAR", "CHAR", "NCHAR", "TEXT", "NTEXT":
		return models.TypeInfo{
			Category:  models.CategoryText,
			MaxLength: typeArg(args, 0, true),
		}

	default:
		return models.TypeInfo{Category: models.CategoryText}
	}
}

// splitSQLType returns the upper-cased base keyword (the first word in the
// string) and its raw parenthesized arguments.
func splitSQLType(rawType string) (string, []string) {
	s := &scanner{src: strings.ToUpper(rawType)}
	for !s.eof() && !isWordRune(s.peek()) {
		s.i++
	}
	base := s.word()
	if base == "" {
		return "", nil
	}
	args, ok := s.typeArguments()
	if !ok {
		return base, nil
	}
	return base, args
}

// typeArg converts the n-th type argument. MAX and -1 mean "unbounded" and are
// only meaningful for lengths; elsewhere they, like overflowing numbers,
// produce no facet.
func typeArg(args []string, n int, isLength bool) *int {
	if n >= len(args) {
		return nil
	}
	raw := args[n]
	if strings.EqualFold(raw, "MAX") {
		if !isLength {
			return nil
		}
		v := models.UnboundedLength
		return &v
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	if v < 0 && (!isLength || v != models.UnboundedLength) {
		return nil
	}
	return &v
}
