package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/sql"
)

const ordersScript = `-- @param CustomerId "Customer"
DECLARE @CustomerId INT
DECLARE @Since DATE = '2024-01-01'
DECLARE @MinAmount DECIMAL(10,2) = NULL
DECLARE @Region NVARCHAR(10) = N'West'
DECLARE @OnlyOpen BIT = 1
SELECT * FROM Orders WHERE CustomerId = @CustomerId
`

func boundByName(bound []models.BoundParameter) map[string]models.BoundParameter {
	out := make(map[string]models.BoundParameter, len(bound))
	for _, bp := range bound {
		out[bp.Name] = bp
	}
	return out
}

func TestBindParameters_UsesDefaultsWhenUnsupplied(t *testing.T) {
	params := sql.ParseScript(ordersScript)

	bound, err := BindParameters(params, map[string]any{"CustomerId": "42"})
	require.NoError(t, err)
	require.Len(t, bound, 5)

	// Declaration order is preserved.
	assert.Equal(t, "CustomerId", bound[0].Name)
	assert.Equal(t, "OnlyOpen", bound[4].Name)

	byName := boundByName(bound)
	assert.Equal(t, int64(42), byName["CustomerId"].Value)
	assert.False(t, byName["CustomerId"].FromDefault)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), byName["Since"].Value)
	assert.True(t, byName["Since"].FromDefault)

	assert.Nil(t, byName["MinAmount"].Value)
	assert.True(t, byName["MinAmount"].FromDefault)

	assert.Equal(t, "West", byName["Region"].Value)

	// The last declaration's default runs into the script body; its first line is used.
	assert.Equal(t, true, byName["OnlyOpen"].Value)
}

func TestBindParameters_ConvertsSuppliedValues(t *testing.T) {
	params := sql.ParseScript(ordersScript)

	bound, err := BindParameters(params, map[string]any{
		"customerid": json.Number("7"),
		"Since":      "2024-06-30",
		"MinAmount":  json.Number("12.50"),
		"Region":     "East",
		"OnlyOpen":   false,
	})
	require.NoError(t, err)

	byName := boundByName(bound)
	assert.Equal(t, int64(7), byName["CustomerId"].Value)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), byName["Since"].Value)
	amount, ok := byName["MinAmount"].Value.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "East", byName["Region"].Value)
	assert.Equal(t, false, byName["OnlyOpen"].Value)
	for _, bp := range bound {
		assert.False(t, bp.FromDefault, bp.Name)
	}
}

func TestBindParameters_BlankOptionalUsesDefault(t *testing.T) {
	params := sql.ParseScript("DECLARE @Top INT = 10;")

	bound, err := BindParameters(params, map[string]any{"Top": "   "})
	require.NoError(t, err)
	require.Len(t, bound, 1)
	assert.Equal(t, int64(10), bound[0].Value)
	assert.True(t, bound[0].FromDefault)
}

func TestBindParameters_CollectsAllFailures(t *testing.T) {
	params := sql.ParseScript(ordersScript)

	_, err := BindParameters(params, map[string]any{
		"Since":    "not a date",
		"Region":   "far too long for ten",
		"OnlyOpen": "maybe",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParameters))

	var verr *ParameterValidationError
	require.True(t, errors.As(err, &verr))

	names := make([]string, len(verr.Failures))
	for i, f := range verr.Failures {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"CustomerId", "Since", "Region", "OnlyOpen"}, names)
	assert.Contains(t, verr.Failures[0].Message, "'Customer' is required")
	assert.Contains(t, err.Error(), "must not exceed 10 characters")
}

func TestBindParameters_IntegerInputs(t *testing.T) {
	params := sql.ParseScript("DECLARE @N BIGINT")

	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{name: "string", value: "-15", want: -15},
		{name: "int", value: 3, want: 3},
		{name: "integral float", value: float64(8), want: 8},
		{name: "json number", value: json.Number("9000000000"), want: 9000000000},
		{name: "fractional float", value: 1.5, wantErr: true},
		{name: "fractional string", value: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound, err := BindParameters(params, map[string]any{"N": tt.value})
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidParameters)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bound[0].Value)
		})
	}
}

func TestBindParameters_UnusableDefault(t *testing.T) {
	params := sql.ParseScript("DECLARE @Count INT = GETDATE()\nDECLARE @Other INT = 1")

	_, err := BindParameters(params, nil)
	require.Error(t, err)

	var verr *ParameterValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Failures, 1)
	assert.Equal(t, "Count", verr.Failures[0].Name)
	assert.Contains(t, verr.Failures[0].Message, "unusable default")
}

func TestValidateParameters(t *testing.T) {
	params := sql.ParseScript(ordersScript)

	checks := ValidateParameters(params, map[string]any{"CustomerId": "abc", "Since": "2024-02-29"})
	require.Len(t, checks, 5)

	assert.Equal(t, "CustomerId", checks[0].Name)
	assert.False(t, checks[0].IsValid)
	assert.Equal(t, "'Customer' must be a whole number", checks[0].Message)

	for _, c := range checks[1:] {
		assert.True(t, c.IsValid, c.Name)
	}
}
