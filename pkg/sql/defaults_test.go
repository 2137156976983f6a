package sql

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

func TestCoerceDefault(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		category models.ParameterCategory
		expected models.DefaultValue
	}{
		{"no assignment", "", models.CategoryInteger, models.AbsentDefault()},
		{"blank assignment", "   ", models.CategoryText, models.AbsentDefault()},
		{"null", "NULL", models.CategoryInteger, models.NullDefault()},
		{"null lowercase", " null ", models.CategoryText, models.NullDefault()},

		{"integer", "42", models.CategoryInteger, models.TypedDefault(models.IntegerValue(42))},
		{"negative integer", "-7", models.CategoryInteger, models.TypedDefault(models.IntegerValue(-7))},
		{"integer with padding", "  42  ", models.CategoryInteger, models.TypedDefault(models.IntegerValue(42))},
		{"integer parse failure keeps text", "abc", models.CategoryInteger, models.TypedDefault(models.TextValue("abc"))},
		{"fraction is not an integer", "1.5", models.CategoryInteger, models.TypedDefault(models.TextValue("1.5"))},

		{"boolean one", "1", models.CategoryBoolean, models.TypedDefault(models.BooleanValue(true))},
		{"boolean false", "FALSE", models.CategoryBoolean, models.TypedDefault(models.BooleanValue(false))},
		{"boolean parse failure keeps text", "yes", models.CategoryBoolean, models.TypedDefault(models.TextValue("yes"))},

		{"quoted text", "'West'", models.CategoryText, models.TypedDefault(models.TextValue("West"))},
		{"national text", "N'Nord'", models.CategoryText, models.TypedDefault(models.TextValue("Nord"))},
		{"double quoted text", `"quoted"`, models.CategoryText, models.TypedDefault(models.TextValue("quoted"))},
		{"bare text", "plain", models.CategoryText, models.TypedDefault(models.TextValue("plain"))},
		{"unbalanced quote", "'open", models.CategoryText, models.TypedDefault(models.TextValue("'open"))},
		{"only one quote layer", "''x''", models.CategoryText, models.TypedDefault(models.TextValue("'x'"))},

		{"function call temporal", "GETDATE()", models.CategoryTemporal, models.TypedDefault(models.TextValue("GETDATE()"))},
		{"unparsable decimal", "1,5", models.CategoryDecimal, models.TypedDefault(models.TextValue("1,5"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CoerceDefault(tt.expr, tt.category))
		})
	}
}

func TestCoerceDefault_Decimal(t *testing.T) {
	tests := []struct {
		expr     string
		expected string
	}{
		{"12.50", "12.5"},
		{"-0.5", "-0.5"},
		{"100", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			def := CoerceDefault(tt.expr, models.CategoryDecimal)
			v, ok := def.Value()
			require.True(t, ok)
			d, ok := v.(models.DecimalValue)
			require.True(t, ok, "expected DecimalValue, got %T", v)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.expected)), "got %s", d)
		})
	}
}

func TestCoerceDefault_Temporal(t *testing.T) {
	tests := []struct {
		expr     string
		expected time.Time
	}{
		{"'2024-01-01'", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{`"2024-03-15"`, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"'20240315'", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"'2024-01-15 13:45:00'", time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC)},
		{"'2024-01-15T13:45:00.5'", time.Date(2024, 1, 15, 13, 45, 0, 500000000, time.UTC)},
		{"2024-06-30", time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			def := CoerceDefault(tt.expr, models.CategoryTemporal)
			v, ok := def.Value()
			require.True(t, ok)
			tv, ok := v.(models.TemporalValue)
			require.True(t, ok, "expected TemporalValue, got %T", v)
			assert.True(t, tt.expected.Equal(tv.Time), "got %s", tv.Time)
		})
	}
}

func TestCoerceDefault_TimeOfDay(t *testing.T) {
	def := CoerceDefault("'08:30'", models.CategoryTemporal)

	v, ok := def.Value()
	require.True(t, ok)
	tv, ok := v.(models.TemporalValue)
	require.True(t, ok)
	assert.Equal(t, 8, tv.Hour())
	assert.Equal(t, 30, tv.Minute())
	assert.Equal(t, "08:30:00", tv.String())
}
