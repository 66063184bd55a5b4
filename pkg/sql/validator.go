// Package sql renders schemas as dialect-specific DDL and provides the
// statement-level helpers used to check and apply it.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates an expression contains a statement separator.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize strips a trailing semicolon and rejects any remaining
// semicolon outside string literals and comments. CHECK expressions go through
// this before they are rendered inline in a CREATE TABLE.
func ValidateAndNormalize(sqlText string) ValidationResult {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return ValidationResult{NormalizedSQL: sqlText}
	}

	normalized := stripTrailingSemicolon(sqlText)
	if len(splitOutsideLiterals(normalized)) > 1 {
		return ValidationResult{Error: ErrMultipleStatements}
	}
	return ValidationResult{NormalizedSQL: normalized}
}

// SplitStatements splits a DDL script into executable statements. Comment-only
// and blank fragments are dropped and trailing semicolons are removed.
func SplitStatements(script string) []string {
	var statements []string
	for _, part := range splitOutsideLiterals(script) {
		if stmt := strings.TrimSpace(part); stmt != "" && !isCommentOnly(stmt) {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// splitOutsideLiterals cuts text at every semicolon that is not inside a
// quoted string, a quoted identifier or a comment.
func splitOutsideLiterals(text string) []string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	var (
		parts []string
		buf   strings.Builder
		state = stateNormal
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case c == ';':
				parts = append(parts, buf.String())
				buf.Reset()
				continue
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateDoubleQuote
			case c == '-' && next == '-':
				state = stateLineComment
			case c == '/' && next == '*':
				state = stateBlockComment
			}
		case stateSingleQuote:
			// A doubled quote ('') exits and immediately re-enters the string.
			if c == '\'' && (i == 0 || runes[i-1] != '\\') {
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				buf.WriteRune(c)
				buf.WriteRune(next)
				i++
				state = stateNormal
				continue
			}
		}
		buf.WriteRune(c)
	}
	if rest := buf.String(); strings.TrimSpace(rest) != "" {
		parts = append(parts, rest)
	}
	return parts
}

// isCommentOnly reports whether every line of stmt is a line comment.
func isCommentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSuffix(sqlText, ";")
		sqlText = strings.TrimRight(sqlText, " \t\n\r")
	}
	return sqlText
}
