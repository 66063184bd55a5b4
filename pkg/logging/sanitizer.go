package logging

import (
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const (
	// MaxScriptLogLength is the maximum length of a generated DDL script to log
	MaxScriptLogLength = 500
	// MaxFDLogLength is the maximum length of a dependency list to log
	MaxFDLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in DSNs
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// mysql DSNs have no scheme: user:pass@tcp(host)/db
	mysqlDSNPattern = regexp.MustCompile(`^[^:/\s]+:[^@/\s]+@`)

	// Single-quoted SQL literal with doubled-quote escapes
	literalPattern = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// SanitizeConnectionString removes credentials from a DSN.
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = mysqlDSNPattern.ReplaceAllString(sanitized, RedactedText+"@")

	return sanitized
}

// SanitizeError sanitizes error messages that might contain credentials.
// Use this before logging any error from a database driver
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeSQL redacts string literals (DEFAULT values, CHECK operands) from a
// DDL script and truncates it for logging. Comment lines are left as is.
func SanitizeSQL(script string) string {
	if script == "" {
		return ""
	}

	lines := strings.Split(script, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines[i] = literalPattern.ReplaceAllString(line, "'"+RedactedText+"'")
	}
	return TruncateString(strings.Join(lines, "\n"), MaxScriptLogLength)
}

// SanitizeFDs renders dependencies as "a -> b; c -> d" for logging.
func SanitizeFDs(fds []models.FunctionalDependency) string {
	parts := make([]string, 0, len(fds))
	for _, fd := range fds {
		parts = append(parts, fd.String())
	}
	return TruncateString(strings.Join(parts, "; "), MaxFDLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
