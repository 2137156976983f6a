package sql

import (
	"strings"
)

const declareKeyword = "DECLARE"

// Declaration is one `DECLARE @Name TYPE [= expr]` clause as written.
type Declaration struct {
	Name    string
	RawType string
	// DefaultExpr is the trimmed text after "=", or "" when there is no assignment.
	DefaultExpr string
}

// ExtractDeclarations returns the parameter declarations of a script in source order.
//
// A default expression runs lazily up to the next occurrence of the word
// DECLARE (in any case) or the end of the text, and may span lines. A string
// literal that itself contains "declare" therefore ends the expression early;
// this is the long-standing behavior and callers depend on it.
//
// Clauses that do not match `DECLARE @ident type[(n[, m])]` are skipped.
func ExtractDeclarations(text string) []Declaration {
	var declarations []Declaration
	upper := asciiUpper(text)

	pos := 0
	for pos < len(text) {
		idx := strings.Index(upper[pos:], declareKeyword)
		if idx < 0 {
			break
		}
		start := pos + idx
		s := &scanner{src: text, i: start + len(declareKeyword)}

		decl, ok := s.declarationHeader()
		if !ok {
			pos = start + len(declareKeyword)
			continue
		}

		if s.assignment() {
			exprStart := s.i
			exprEnd := len(text)
			if next := strings.Index(upper[exprStart:], declareKeyword); next >= 0 {
				exprEnd = exprStart + next
			}
			decl.DefaultExpr = strings.TrimSpace(text[exprStart:exprEnd])
			pos = exprEnd
		} else {
			pos = s.i
		}
		declarations = append(declarations, decl)
	}
	return declarations
}

// declarationHeader parses ` @Name TYPE[(args)]` right after the DECLARE keyword.
func (s *scanner) declarationHeader() (Declaration, bool) {
	start := s.i
	fail := func() (Declaration, bool) {
		s.i = start
		return Declaration{}, false
	}

	if s.skipSpace() == 0 || !s.consume('@') {
		return fail()
	}
	name := s.word()
	if name == "" || s.skipSpace() == 0 {
		return fail()
	}

	typeStart := s.i
	if s.word() == "" {
		return fail()
	}
	if s.peek() == '(' {
		if _, ok := s.typeArguments(); !ok {
			return fail()
		}
	}
	rawType := s.src[typeStart:s.i]

	// TABLE (...) and other composite declarations are not scalar parameters.
	after := s.i
	s.skipSpace()
	if s.peek() == '(' {
		return fail()
	}
	s.i = after

	return Declaration{Name: name, RawType: rawType}, true
}

// assignment consumes optional whitespace and "=". On failure the cursor is unchanged.
func (s *scanner) assignment() bool {
	start := s.i
	s.skipSpace()
	if s.consume('=') {
		return true
	}
	s.i = start
	return false
}
