package models

import (
	"fmt"
	"strings"
)

// ============================================================================
// Parameter Categories
// ============================================================================

// ParameterCategory is the semantic type family a declared SQL type maps to.
// Form renderers pick an input control per category.
type ParameterCategory string

const (
	CategoryText     ParameterCategory = "text"
	CategoryInteger  ParameterCategory = "integer"
	CategoryDecimal  ParameterCategory = "decimal"
	CategoryTemporal ParameterCategory = "temporal"
	CategoryBoolean  ParameterCategory = "boolean"
)

// UnboundedLength is the MaxLength facet of NVARCHAR(MAX) and friends.
const UnboundedLength = -1

// TypeInfo is the classification of a raw SQL type string.
// Facets are nil when the type does not carry them.
type TypeInfo struct {
	Category  ParameterCategory
	MaxLength *int
	Precision *int
	Scale     *int
}

// ============================================================================
// Annotations
// ============================================================================

// ParameterAnnotation is the human-readable metadata from a
// `-- @param Name "Display Name" "Description"` comment line.
type ParameterAnnotation struct {
	ParameterName string `json:"parameter_name"`
	DisplayName   string `json:"display_name"`
	Description   string `json:"description"`
}

// IsValid reports whether both the parameter name and display name are non-blank.
func (a ParameterAnnotation) IsValid() bool {
	return strings.TrimSpace(a.ParameterName) != "" && strings.TrimSpace(a.DisplayName) != ""
}

func (a ParameterAnnotation) String() string {
	if a.Description == "" {
		return fmt.Sprintf("@%s: %s", a.ParameterName, a.DisplayName)
	}
	return fmt.Sprintf("@%s: %s (%s)", a.ParameterName, a.DisplayName, a.Description)
}

// ============================================================================
// Parameter Descriptor
// ============================================================================

// ParameterDescriptor is one declared script parameter after classification,
// default coercion and annotation merge.
//
// Descriptors are built by the script parser and handed to the caller; the only
// mutation allowed afterwards is a single ApplyAnnotation.
type ParameterDescriptor struct {
	// Name is the identifier without the @ sigil.
	Name string
	// SQLType is the type exactly as written, e.g. "NVARCHAR(50)".
	SQLType   string
	Category  ParameterCategory
	MaxLength *int
	Precision *int
	Scale     *int

	DisplayName string
	Description string

	Default DefaultValue

	annotated bool
}

// NewParameterDescriptor builds a descriptor from a classified type and a coerced default.
func NewParameterDescriptor(name, sqlType string, info TypeInfo, def DefaultValue) *ParameterDescriptor {
	return &ParameterDescriptor{
		Name:      name,
		SQLType:   sqlType,
		Category:  info.Category,
		MaxLength: info.MaxLength,
		Precision: info.Precision,
		Scale:     info.Scale,
		Default:   def,
	}
}

// HasDefault is true when the declaration assigned NULL or a literal.
func (p *ParameterDescriptor) HasDefault() bool {
	return !p.Default.IsAbsent()
}

// IsRequired is true when the declaration has no default at all.
func (p *ParameterDescriptor) IsRequired() bool {
	return !p.HasDefault()
}

// ApplyAnnotation copies the display name and description from a matching
// annotation. Names compare case-insensitively. Only the first matching
// annotation is applied; it returns whether this call changed the descriptor.
func (p *ParameterDescriptor) ApplyAnnotation(annotation ParameterAnnotation) bool {
	if p.annotated || !strings.EqualFold(annotation.ParameterName, p.Name) {
		return false
	}
	p.DisplayName = annotation.DisplayName
	p.Description = annotation.Description
	p.annotated = true
	return true
}

// GetDisplayName returns the annotated display name, falling back to Name.
func (p *ParameterDescriptor) GetDisplayName() string {
	if strings.TrimSpace(p.DisplayName) == "" {
		return p.Name
	}
	return p.DisplayName
}

// LengthLimit returns the maximum text length, if one applies.
func (p *ParameterDescriptor) LengthLimit() (int, bool) {
	if p.MaxLength == nil || *p.MaxLength == UnboundedLength {
		return 0, false
	}
	return *p.MaxLength, true
}

// Tooltip is the hover text shown next to the parameter's input control.
func (p *ParameterDescriptor) Tooltip() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parameter: @%s\nType: %s", p.Name, p.SQLType)
	if strings.TrimSpace(p.Description) != "" {
		fmt.Fprintf(&b, "\n\n%s", p.Description)
	}
	if p.HasDefault() {
		fmt.Fprintf(&b, "\nDefault: %s", p.Default)
	}
	return b.String()
}

func (p *ParameterDescriptor) String() string {
	return fmt.Sprintf("%s (@%s, %s)", p.GetDisplayName(), p.Name, p.SQLType)
}

// BoundParameter is a validated parameter value ready to be sent to the
// database. Value is nil for SQL NULL.
type BoundParameter struct {
	Name     string            `json:"name"`
	SQLType  string            `json:"sql_type"`
	Category ParameterCategory `json:"category"`
	Value    any               `json:"value"`
	// FromDefault is true when no value was supplied and the declared default was used.
	FromDefault bool `json:"from_default"`
}
