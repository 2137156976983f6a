package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// ParameterFailure is one parameter that could not be bound.
type ParameterFailure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ParameterValidationError collects every failure of one binding attempt.
type ParameterValidationError struct {
	Failures []ParameterFailure
}

func (e *ParameterValidationError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Message
	}
	return "invalid parameters: " + strings.Join(msgs, "; ")
}

func (e *ParameterValidationError) Unwrap() error {
	return apperrors.ErrInvalidParameters
}

// ParameterCheck is the validation outcome of a single parameter.
type ParameterCheck struct {
	Name string `json:"name"`
	models.ValidationOutcome
}

// ValidateParameters checks every supplied value without binding it.
// Outcomes follow declaration order.
func ValidateParameters(params []*models.ParameterDescriptor, values map[string]any) []ParameterCheck {
	checks := make([]ParameterCheck, len(params))
	for i, p := range params {
		value, _ := lookupValue(values, p.Name)
		checks[i] = ParameterCheck{Name: p.Name, ValidationOutcome: p.ValidateValue(value)}
	}
	return checks
}

// BindParameters validates the supplied values against the declared
// parameters and converts them to native values in declaration order.
// Keys match parameter names exactly first, then case-insensitively.
// A missing or blank value for an optional parameter binds its default.
func BindParameters(params []*models.ParameterDescriptor, values map[string]any) ([]models.BoundParameter, error) {
	bound := make([]models.BoundParameter, 0, len(params))
	var failures []ParameterFailure

	for _, p := range params {
		value, _ := lookupValue(values, p.Name)

		if outcome := p.ValidateValue(value); !outcome.IsValid {
			failures = append(failures, ParameterFailure{Name: p.Name, Message: outcome.Message})
			continue
		}

		bp := models.BoundParameter{Name: p.Name, SQLType: p.SQLType, Category: p.Category}

		if value == nil {
			native, err := defaultNative(p)
			if err != nil {
				failures = append(failures, ParameterFailure{Name: p.Name, Message: err.Error()})
				continue
			}
			bp.Value = native
			bp.FromDefault = true
			bound = append(bound, bp)
			continue
		}

		native, err := convertValue(p.Category, value)
		if err != nil {
			failures = append(failures, ParameterFailure{
				Name:    p.Name,
				Message: fmt.Sprintf("'%s': %v", p.GetDisplayName(), err),
			})
			continue
		}
		bp.Value = native
		bound = append(bound, bp)
	}

	if len(failures) > 0 {
		return nil, &ParameterValidationError{Failures: failures}
	}
	return bound, nil
}

// lookupValue finds the value supplied for a parameter. Blank strings count
// as not supplied, which is how empty form inputs arrive.
func lookupValue(values map[string]any, name string) (any, bool) {
	v, ok := values[name]
	if !ok {
		for k, candidate := range values {
			if strings.EqualFold(k, name) {
				v, ok = candidate, true
				break
			}
		}
	}
	if !ok || isBlank(v) {
		return nil, false
	}
	return v, true
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

// defaultNative returns the default's binding value in the parameter's
// category. Literals that did not parse for their declared type are kept as
// text by the parser. The last declaration of a script also carries the script
// body after its literal, so such text is retried with its first line only.
func defaultNative(p *models.ParameterDescriptor) (any, error) {
	v, ok := p.Default.Value()
	if !ok {
		return nil, nil
	}
	text, isText := v.(models.TextValue)
	if !isText {
		return v.Native(), nil
	}

	raw := string(text)
	if p.Category == models.CategoryText {
		if !strings.ContainsAny(raw, "\r\n") {
			return raw, nil
		}
		return unquoteLiteral(leadingLiteral(raw)), nil
	}

	native, err := convertValue(p.Category, models.StripQuotes(leadingLiteral(raw)))
	if err != nil {
		return nil, fmt.Errorf("'%s' has an unusable default %q", p.GetDisplayName(), leadingLiteral(raw))
	}
	return native, nil
}

// leadingLiteral returns the first line of s without a trailing semicolon.
func leadingLiteral(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
}

// unquoteLiteral strips one layer of quotes, including the N'...' prefix.
func unquoteLiteral(s string) string {
	if len(s) >= 3 && (s[0] == 'N' || s[0] == 'n') && s[1] == '\'' {
		s = s[1:]
	}
	return models.StripQuotes(s)
}

var errNotWhole = errors.New("must be a whole number")

// convertValue turns a validated candidate into the Go value the drivers bind.
func convertValue(category models.ParameterCategory, value any) (any, error) {
	if v, ok := value.(models.Value); ok {
		value = v.Native()
	}

	switch category {
	case models.CategoryInteger:
		return toInt64(value)
	case models.CategoryDecimal:
		return toDecimal(value)
	case models.CategoryTemporal:
		if t, ok := value.(time.Time); ok {
			return t, nil
		}
		t, ok := models.ParseTemporalLiteral(strings.TrimSpace(fmt.Sprint(value)))
		if !ok {
			return nil, errors.New("must be a date")
		}
		return t, nil
	case models.CategoryBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		b, ok := models.ParseBooleanLiteral(strings.TrimSpace(fmt.Sprint(value)))
		if !ok {
			return nil, errors.New("must be true or false")
		}
		return b, nil
	default:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	}
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, errNotWhole
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errNotWhole
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, errNotWhole
		}
		return int64(v), nil
	case json.Number:
		return parseInt(v.String())
	case string:
		return parseInt(v)
	}
	return parseInt(fmt.Sprint(value))
}

func parseInt(s string) (int64, error) {
	n, ok := models.ParseIntegerLiteral(strings.TrimSpace(s))
	if !ok {
		return 0, errNotWhole
	}
	return n, nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	}
	d, ok := models.ParseDecimalLiteral(strings.TrimSpace(fmt.Sprint(value)))
	if !ok {
		return decimal.Decimal{}, errors.New("must be a number")
	}
	return d, nil
}
