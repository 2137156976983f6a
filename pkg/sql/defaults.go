package sql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// CoerceDefault turns the raw default expression of a declaration into a
// typed default for the given category.
//
// An empty expression means there was no assignment. NULL (any case) is an
// explicit null. A literal that does not parse for its category is kept as
// TextValue holding the trimmed expression; coercion never fails.
func CoerceDefault(rawExpr string, category models.ParameterCategory) models.DefaultValue {
	expr := strings.TrimSpace(rawExpr)
	if expr == "" {
		return models.AbsentDefault()
	}
	if strings.EqualFold(expr, "NULL") {
		return models.NullDefault()
	}

	switch category {
	case models.CategoryInteger:
		if n, ok := models.ParseIntegerLiteral(expr); ok {
			return models.TypedDefault(models.IntegerValue(n))
		}

	case models.CategoryDecimal:
		if d, ok := models.ParseDecimalLiteral(expr); ok {
			return models.TypedDefault(models.DecimalValue{Decimal: d})
		}

	case models.CategoryTemporal:
		if t, ok := models.ParseTemporalLiteral(strings.TrimSpace(models.StripQuotes(expr))); ok {
			return models.TypedDefault(models.TemporalValue{Time: t})
		}

	case models.CategoryBoolean:
		if b, ok := models.ParseBooleanLiteral(expr); ok {
			return models.TypedDefault(models.BooleanValue(b))
		}

	default:
		return models.TypedDefault(models.TextValue(unquoteText(expr)))
	}

	return models.TypedDefault(models.TextValue(expr))
}

// unquoteText strips one layer of matching quotes, including the N'...'
// national-character prefix.
func unquoteText(expr string) string {
	if len(expr) >= 3 && (expr[0] == 'N' || expr[0] == 'n') && expr[1] == '\'' && expr[len(expr)-1] == '\'' {
		return expr[2 : len(expr)-1]
	}
	return models.StripQuotes(expr)
}
