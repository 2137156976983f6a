package sql

import (
	"strings"
)

// annotationLinePrefix is matched against trimmed lines when stripping the prologue.
const annotationLinePrefix = "-- @param"

// RemoveDeclareBlock strips annotation lines and the DECLARE prologue so the
// remaining statements can be executed with bound parameters.
//
// A DECLARE line opens the prologue; blank lines, comment lines and further
// DECLARE lines inside it are dropped. The first other line closes the
// prologue and is kept. Annotation lines are dropped anywhere. Kept lines are
// emitted verbatim, with their original line endings.
func RemoveDeclareBlock(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	inDeclare := false
	for _, line := range splitLinesKeepEnds(text) {
		trimmed := strings.TrimSpace(line)

		if hasPrefixFold(trimmed, annotationLinePrefix) {
			continue
		}
		if hasPrefixFold(trimmed, declareKeyword) {
			inDeclare = true
			continue
		}
		if inDeclare {
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			inDeclare = false
		}
		b.WriteString(line)
	}
	return b.String()
}
