package stl

import (
	"strings"
	"unicode"
)

// Fields splits a line into tokens separated by any mix of whitespace,
// commas and semicolons. Separators never produce empty tokens, and there is
// no quoting.
func Fields(line string) []string {
	return strings.FieldsFunc(line, isSeparator)
}

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

// hasKeyword reports whether tokens start with the one-token form joined or
// the two-token form first second, e.g. "endloop" or "end" "loop".
func hasKeyword(tokens []string, joined, first, second string) bool {
	if len(tokens) >= 1 && tokens[0] == joined {
		return true
	}
	return len(tokens) >= 2 && tokens[0] == first && tokens[1] == second
}
