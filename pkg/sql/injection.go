package sql

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// InjectionCheckResult contains the result of an injection check on a bound value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the parameter that failed the check
	ParamValue  any    // The value that was checked
}

// CheckParameterForInjection uses libinjection to detect SQL injection patterns
// in a bound parameter value.
//
// Only text values are checked (plain strings and models.TextValue). Integers,
// decimals, dates and booleans are bound natively and cannot carry a payload.
//
// Example:
//
//	result := CheckParameterForInjection("Region", "West")
//	// result == nil
//
//	result := CheckParameterForInjection("Region", "'; DROP TABLE users--")
//	// result.IsSQLi == true
//	// result.ParamName == "Region"
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	case models.TextValue:
		strValue = string(v)
	default:
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
		ParamValue:  value,
	}
}

// CheckAllParameters checks every bound value and returns the failures
// ordered by parameter name. The result is empty when all values are clean.
func CheckAllParameters(params map[string]any) []*InjectionCheckResult {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		if result := CheckParameterForInjection(name, params[name]); result != nil {
			results = append(results, result)
		}
	}
	return results
}
