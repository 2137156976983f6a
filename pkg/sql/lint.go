package sql

import (
	"fmt"
	"sort"
	"strings"
)

// FindDeclareInStringLiterals returns the 1-based line numbers of string
// literals that contain the word DECLARE. Such a literal inside a default
// expression cuts the expression short, so authors are warned about them.
//
// Example:
//
//	text := "DECLARE @Note NVARCHAR(100) = 'please declare'"
//	lines := FindDeclareInStringLiterals(text)
//	// lines == []int{1}
func FindDeclareInStringLiterals(text string) []int {
	var lines []int
	seen := make(map[int]bool)

	inString := false
	stringStart := 0
	line := 1
	startLine := 1

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '\n' {
			line++
			continue
		}
		if ch != '\'' {
			continue
		}
		if !inString {
			inString = true
			stringStart = i
			startLine = line
			continue
		}
		// '' is an escaped quote inside the literal
		if i+1 < len(text) && text[i+1] == '\'' {
			i++
			continue
		}
		content := asciiUpper(text[stringStart+1 : i])
		if strings.Contains(content, declareKeyword) && !seen[startLine] {
			seen[startLine] = true
			lines = append(lines, startLine)
		}
		inString = false
	}
	return lines
}

// Lint reports problems in a script that parse silently: annotations with no
// matching declaration and DECLARE inside string literals. Messages are sorted.
func Lint(text string) []string {
	var warnings []string

	declared := make(map[string]bool)
	for _, decl := range ExtractDeclarations(text) {
		declared[foldName(decl.Name)] = true
	}
	for key, annotation := range ParseAnnotations(text) {
		if !declared[key] {
			warnings = append(warnings, fmt.Sprintf("annotation for '%s' has no matching DECLARE", annotation.ParameterName))
		}
	}
	sort.Strings(warnings)

	for _, line := range FindDeclareInStringLiterals(text) {
		warnings = append(warnings, fmt.Sprintf("line %d: string literal contains DECLARE and will truncate the preceding default", line))
	}
	return warnings
}
