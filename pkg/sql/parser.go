package sql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// ParseScript extracts the annotated, typed parameters declared by a script.
// Descriptors follow declaration order. Every call builds a fresh list that
// the caller owns.
//
// Example:
//
//	-- @param StartDate "Start Date" "First day of the report"
//	DECLARE @StartDate DATE = '2024-01-01'
//	DECLARE @Region NVARCHAR(50)
//
//	params := ParseScript(text)
//	// params[0]: StartDate, temporal, default 2024-01-01, display "Start Date"
//	// params[1]: Region, text, max length 50, required
func ParseScript(text string) []*models.ParameterDescriptor {
	if strings.TrimSpace(text) == "" {
		return []*models.ParameterDescriptor{}
	}

	annotations := ParseAnnotations(text)
	declarations := ExtractDeclarations(text)

	params := make([]*models.ParameterDescriptor, 0, len(declarations))
	for _, decl := range declarations {
		info := ClassifySQLType(decl.RawType)
		param := models.NewParameterDescriptor(decl.Name, decl.RawType, info, CoerceDefault(decl.DefaultExpr, info.Category))

		if annotation, ok := annotations[foldName(decl.Name)]; ok {
			param.ApplyAnnotation(annotation)
		}
		params = append(params, param)
	}
	return params
}
