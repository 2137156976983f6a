package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Value is a typed parameter value. The set of implementations is closed:
// IntegerValue, DecimalValue, TemporalValue, BooleanValue and TextValue.
type Value interface {
	// Native returns the plain Go value used for binding.
	Native() any
	String() string
	isValue()
}

// IntegerValue holds whole numbers.
type IntegerValue int64

// DecimalValue holds exact decimal numbers.
type DecimalValue struct{ decimal.Decimal }

// TemporalValue holds dates, date-times and times of day.
type TemporalValue struct{ time.Time }

// BooleanValue holds BIT values.
type BooleanValue bool

// TextValue holds character data. It is also the fallback shape for any
// literal that failed to parse for its category.
type TextValue string

func (v IntegerValue) Native() any    { return int64(v) }
func (v IntegerValue) String() string { return strconv.FormatInt(int64(v), 10) }
func (IntegerValue) isValue()         {}

func (v DecimalValue) Native() any    { return v.Decimal }
func (v DecimalValue) String() string { return v.Decimal.String() }
func (DecimalValue) isValue()         {}

func (v TemporalValue) Native() any { return v.Time }

// String prints the shortest layout that keeps all of the value's precision.
func (v TemporalValue) String() string {
	t := v.Time
	switch {
	case t.Year() == 0 && t.Month() == time.January && t.Day() == 1:
		return t.Format("15:04:05.999999999")
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC:
		return t.Format(time.DateOnly)
	case t.Location() == time.UTC:
		return t.Format("2006-01-02 15:04:05.999999999")
	default:
		return t.Format(time.RFC3339Nano)
	}
}
func (TemporalValue) isValue() {}

func (v BooleanValue) Native() any    { return bool(v) }
func (v BooleanValue) String() string { return strconv.FormatBool(bool(v)) }
func (BooleanValue) isValue()         {}

func (v TextValue) Native() any    { return string(v) }
func (v TextValue) String() string { return string(v) }
func (TextValue) isValue()         {}

// DefaultKind tags a DefaultValue.
type DefaultKind int

const (
	// DefaultAbsent means the declaration had no "= ..." part.
	DefaultAbsent DefaultKind = iota
	// DefaultNull means the declaration assigned NULL.
	DefaultNull
	// DefaultTyped means the declaration assigned a literal.
	DefaultTyped
)

func (k DefaultKind) String() string {
	switch k {
	case DefaultNull:
		return "null"
	case DefaultTyped:
		return "typed"
	default:
		return "absent"
	}
}

// DefaultValue is the default assigned in a declaration: absent, an explicit
// NULL, or a typed value. The zero value is absent.
type DefaultValue struct {
	kind  DefaultKind
	value Value
}

// AbsentDefault returns a default for a declaration without an assignment.
func AbsentDefault() DefaultValue { return DefaultValue{kind: DefaultAbsent} }

// NullDefault returns an explicit NULL default.
func NullDefault() DefaultValue { return DefaultValue{kind: DefaultNull} }

// TypedDefault returns a literal default. A nil value yields an absent default.
func TypedDefault(v Value) DefaultValue {
	if v == nil {
		return AbsentDefault()
	}
	return DefaultValue{kind: DefaultTyped, value: v}
}

func (d DefaultValue) Kind() DefaultKind { return d.kind }
func (d DefaultValue) IsAbsent() bool    { return d.kind == DefaultAbsent }
func (d DefaultValue) IsNull() bool      { return d.kind == DefaultNull }

// Value returns the typed payload. ok is false unless the default is typed.
// The payload's shape is not guaranteed to match the parameter's category:
// unparsable literals are kept as TextValue.
func (d DefaultValue) Value() (v Value, ok bool) {
	if d.kind != DefaultTyped {
		return nil, false
	}
	return d.value, true
}

// Native returns the binding value: nil for absent and NULL defaults.
func (d DefaultValue) Native() any {
	if d.kind != DefaultTyped {
		return nil
	}
	return d.value.Native()
}

func (d DefaultValue) String() string {
	switch d.kind {
	case DefaultNull:
		return "NULL"
	case DefaultTyped:
		return d.value.String()
	default:
		return ""
	}
}
