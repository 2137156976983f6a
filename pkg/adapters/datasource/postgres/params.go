package postgres

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// namedArgs maps bound parameters onto the @name placeholders of the script.
// pgx matches names case-sensitively while declarations are not, so every
// spelling found in the script is bound to the parameter it folds to.
func namedArgs(script string, params []models.BoundParameter) pgx.NamedArgs {
	args := make(pgx.NamedArgs, len(params))
	byFold := make(map[string]any, len(params))
	for _, p := range params {
		v := driverValue(p)
		args[p.Name] = v
		byFold[strings.ToLower(p.Name)] = v
	}

	for _, name := range placeholderNames(script) {
		if _, ok := args[name]; ok {
			continue
		}
		if v, ok := byFold[strings.ToLower(name)]; ok {
			args[name] = v
		}
	}
	return args
}

// placeholderNames returns each distinct @name token in the script. @@name
// (server variables) is skipped.
func placeholderNames(script string) []string {
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(script); i++ {
		if script[i] != '@' {
			continue
		}
		if i+1 < len(script) && script[i+1] == '@' {
			i++
			for i+1 < len(script) && isIdentByte(script[i+1]) {
				i++
			}
			continue
		}
		j := i + 1
		for j < len(script) && isIdentByte(script[j]) {
			j++
		}
		if j > i+1 {
			name := script[i+1 : j]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		i = j - 1
	}
	return names
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// driverValue converts binder output into values pgx encodes for the types
// the server infers from the placeholder context.
func driverValue(p models.BoundParameter) any {
	if p.Value == nil {
		return nil
	}

	switch v := p.Value.(type) {
	case decimal.Decimal:
		return v.String()
	case time.Time:
		if baseTypeName(p.SQLType) == "TIME" {
			return v.Format("15:04:05.999999")
		}
		return v
	}
	return p.Value
}

// baseTypeName returns the upper-cased type keyword without arguments.
func baseTypeName(sqlType string) string {
	s := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexAny(s, "( \t"); i >= 0 {
		s = s[:i]
	}
	return s
}
