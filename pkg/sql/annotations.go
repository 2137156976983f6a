package sql

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

// AnnotationMarker starts every annotation comment line.
const AnnotationMarker = "-- @param "

// ParseAnnotations collects `-- @param Name "Display" ["Description"]` lines.
// The result is keyed by case-folded parameter name; when a name is annotated
// twice the later line wins. Malformed lines are skipped.
func ParseAnnotations(text string) map[string]models.ParameterAnnotation {
	annotations := make(map[string]models.ParameterAnnotation)
	for _, line := range splitLinesKeepEnds(text) {
		annotation, ok := ParseAnnotationLine(line)
		if !ok {
			continue
		}
		annotations[foldName(annotation.ParameterName)] = annotation
	}
	return annotations
}

// ParseAnnotationLine parses a single annotation line.
func ParseAnnotationLine(line string) (models.ParameterAnnotation, bool) {
	line = strings.TrimSpace(line)
	if !hasPrefixFold(line, AnnotationMarker) {
		return models.ParameterAnnotation{}, false
	}

	tokens := tokenizeAnnotation(line[len(AnnotationMarker):])
	if len(tokens) < 2 {
		return models.ParameterAnnotation{}, false
	}

	annotation := models.ParameterAnnotation{
		ParameterName: tokens[0],
		DisplayName:   tokens[1],
	}
	if len(tokens) > 2 {
		annotation.Description = tokens[2]
	}
	if !annotation.IsValid() {
		return models.ParameterAnnotation{}, false
	}
	return annotation, true
}

// tokenizeAnnotation splits `Name "Display" "Description"`. The first token is
// the leading unquoted word; every later token is the content of a
// double-quoted segment. Text between segments is ignored, and an unterminated
// final segment still yields its content.
func tokenizeAnnotation(content string) []string {
	content = strings.TrimSpace(content)

	end := 0
	for end < len(content) {
		r, size := utf8.DecodeRuneInString(content[end:])
		if unicode.IsSpace(r) || r == '"' {
			break
		}
		end += size
	}
	name := strings.TrimPrefix(content[:end], "@")
	if name == "" {
		return nil
	}

	tokens := []string{name}
	rest := content[end:]
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		rest = rest[open+1:]
		closing := strings.IndexByte(rest, '"')
		if closing < 0 {
			if rest != "" {
				tokens = append(tokens, rest)
			}
			break
		}
		tokens = append(tokens, rest[:closing])
		rest = rest[closing+1:]
	}
	return tokens
}
