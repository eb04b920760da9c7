package ingest

import (
	"regexp"
	"strings"
)

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeHeader maps raw CSV header tokens to column names usable in a
// CREATE TABLE: surrounding whitespace is trimmed, every remaining character
// outside [A-Za-z0-9_] becomes an underscore, and a token that sanitizes to
// nothing becomes "col".
func SanitizeHeader(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		s := nonIdent.ReplaceAllString(strings.TrimSpace(tok), "_")
		if s == "" {
			s = "col"
		}
		out[i] = s
	}
	return out
}

// stripBOM removes a UTF-8 byte order mark from the first header token.
// Spreadsheet exports routinely carry one and it would otherwise end up
// inside the first column name.
func stripBOM(tokens []string) {
	if len(tokens) > 0 {
		tokens[0] = strings.TrimPrefix(tokens[0], "\uFEFF")
	}
}
