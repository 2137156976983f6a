package sql

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// scanner is a forward-only cursor over script text.
// Methods that fail leave the cursor where it was.
type scanner struct {
	src string
	i   int
}

func (s *scanner) eof() bool {
	return s.i >= len(s.src)
}

func (s *scanner) peek() rune {
	if s.eof() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.i:])
	return r
}

// skipSpace consumes whitespace and reports how many bytes it consumed.
func (s *scanner) skipSpace() int {
	start := s.i
	for !s.eof() {
		r, size := utf8.DecodeRuneInString(s.src[s.i:])
		if !unicode.IsSpace(r) {
			break
		}
		s.i += size
	}
	return s.i - start
}

// word consumes a run of word characters (letters, digits, underscore).
func (s *scanner) word() string {
	start := s.i
	for !s.eof() {
		r, size := utf8.DecodeRuneInString(s.src[s.i:])
		if !isWordRune(r) {
			break
		}
		s.i += size
	}
	return s.src[start:s.i]
}

func (s *scanner) consume(b byte) bool {
	if s.eof() || s.src[s.i] != b {
		return false
	}
	s.i++
	return true
}

// typeArgument consumes an optionally signed integer or the keyword MAX.
func (s *scanner) typeArgument() (string, bool) {
	start := s.i
	if !s.eof() && (s.src[s.i] == '-' || s.src[s.i] == '+') {
		s.i++
	}
	digits := s.i
	for !s.eof() && s.src[s.i] >= '0' && s.src[s.i] <= '9' {
		s.i++
	}
	if s.i > digits {
		return s.src[start:s.i], true
	}
	s.i = start
	if w := s.word(); strings.EqualFold(w, "MAX") {
		return w, true
	}
	s.i = start
	return "", false
}

// typeArguments consumes "(a)" or "(a, b)" and returns the raw arguments.
func (s *scanner) typeArguments() ([]string, bool) {
	start := s.i
	if !s.consume('(') {
		return nil, false
	}
	s.skipSpace()
	first, ok := s.typeArgument()
	if !ok {
		s.i = start
		return nil, false
	}
	args := []string{first}
	s.skipSpace()
	if s.consume(',') {
		s.skipSpace()
		second, ok := s.typeArgument()
		if !ok {
			s.i = start
			return nil, false
		}
		args = append(args, second)
		s.skipSpace()
	}
	if !s.consume(')') {
		s.i = start
		return nil, false
	}
	return args, true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// asciiUpper upper-cases ASCII letters only, so byte offsets in the result
// line up with the input.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// foldName is the canonical form of a parameter name for map keys.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// splitLinesKeepEnds splits text after each \n, \r\n or lone \r, keeping the
// terminators attached to their lines.
func splitLinesKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i+1])
			start = i + 1
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func trimLineEnd(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// hasPrefixFold reports whether s starts with prefix, ignoring case.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
