package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ValidationOutcome is the result of validating one candidate value.
// Message is meant for direct display next to the input control.
type ValidationOutcome struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message,omitempty"`
}

func validOutcome() ValidationOutcome { return ValidationOutcome{IsValid: true} }

func invalidOutcome(format string, args ...any) ValidationOutcome {
	return ValidationOutcome{IsValid: false, Message: fmt.Sprintf(format, args...)}
}

// ValidateValue checks a candidate value supplied for this parameter.
// It never mutates the descriptor or the candidate.
func (p *ParameterDescriptor) ValidateValue(candidate any) ValidationOutcome {
	display := p.GetDisplayName()

	if p.IsRequired() && (candidate == nil || strings.TrimSpace(candidateString(candidate)) == "") {
		return invalidOutcome("'%s' is required", display)
	}
	if candidate == nil {
		return validOutcome()
	}

	switch p.Category {
	case CategoryInteger:
		if isNativeInteger(candidate) {
			return validOutcome()
		}
		if _, ok := ParseIntegerLiteral(strings.TrimSpace(candidateString(candidate))); ok {
			return validOutcome()
		}
		return invalidOutcome("'%s' must be a whole number", display)

	case CategoryDecimal:
		if isNativeDecimal(candidate) {
			return validOutcome()
		}
		if _, ok := ParseDecimalLiteral(strings.TrimSpace(candidateString(candidate))); ok {
			return validOutcome()
		}
		return invalidOutcome("'%s' must be a number", display)

	case CategoryTemporal:
		switch candidate.(type) {
		case time.Time, TemporalValue:
			return validOutcome()
		}
		if _, ok := ParseTemporalLiteral(strings.TrimSpace(candidateString(candidate))); ok {
			return validOutcome()
		}
		return invalidOutcome("'%s' must be a date", display)

	case CategoryBoolean:
		switch candidate.(type) {
		case bool, BooleanValue:
			return validOutcome()
		}
		if _, ok := ParseBooleanLiteral(strings.TrimSpace(candidateString(candidate))); ok {
			return validOutcome()
		}
		return invalidOutcome("'%s' must be true or false", display)

	default:
		if limit, ok := p.LengthLimit(); ok && utf8.RuneCountInString(candidateString(candidate)) > limit {
			return invalidOutcome("'%s' must not exceed %d characters", display, limit)
		}
		return validOutcome()
	}
}

// candidateString is the string form of a candidate value.
func candidateString(candidate any) string {
	switch v := candidate.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func isNativeInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, IntegerValue:
		return true
	}
	return false
}

func isNativeDecimal(v any) bool {
	switch v.(type) {
	case float32, float64, decimal.Decimal, DecimalValue:
		return true
	}
	return false
}
