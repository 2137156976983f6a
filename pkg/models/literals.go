package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Literal grammars shared by default coercion and value validation.
// Every parser expects input that is already trimmed.

// temporalLayouts are tried in order. Date-only and unseparated forms come
// first because they are the most common in script defaults.
var temporalLayouts = []string{
	time.DateOnly,
	"20060102",
	"2006-01-02 15:04",
	time.DateTime,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"15:04",
	time.TimeOnly,
	"15:04:05.999999999",
}

// ParseIntegerLiteral parses a base-10 whole number with an optional sign.
func ParseIntegerLiteral(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDecimalLiteral parses a culture-invariant decimal: optional sign,
// optional decimal point, optional exponent.
func ParseDecimalLiteral(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseTemporalLiteral parses a calendar date, date-time or time of day.
func ParseTemporalLiteral(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBooleanLiteral accepts 1/0 and true/false in any case.
func ParseBooleanLiteral(s string) (bool, bool) {
	switch {
	case s == "1" || strings.EqualFold(s, "true"):
		return true, true
	case s == "0" || strings.EqualFold(s, "false"):
		return false, true
	default:
		return false, false
	}
}

// StripQuotes removes exactly one layer of matching single or double quotes.
func StripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' || first == '"') && first == last {
		return s[1 : len(s)-1]
	}
	return s
}
