package sql

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// InjectionCheckResult describes a CHECK constraint whose expression looks unsafe.
type InjectionCheckResult struct {
	Constraint  string // Name of the CHECK constraint
	Expression  string // The expression that failed
	Literal     string // The string literal libinjection flagged, if any
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckExpressionForInjection runs libinjection over every string literal in a
// CHECK expression. The expression itself is SQL, so only the literals are
// treated as data.
//
// Returns nil if no literal is flagged.
//
// Example:
//
//	// Safe value
//	CheckExpressionForInjection("chk_users_status", "status IN ('active', 'banned')")
//	// == nil
//
//	// Flagged literal
//	r := CheckExpressionForInjection("chk_notes", "note <> '1 UNION SELECT * FROM passwords'")
//	// r.Literal == "1 UNION SELECT * FROM passwords"
func CheckExpressionForInjection(constraintName, expression string) *InjectionCheckResult {
	for _, literal := range stringLiterals(expression) {
		isSQLi, fingerprint := libinjection.IsSQLi(literal)
		if isSQLi {
			return &InjectionCheckResult{
				Constraint:  constraintName,
				Expression:  expression,
				Literal:     literal,
				Fingerprint: string(fingerprint),
			}
		}
	}
	return nil
}

// CheckTableConstraints checks every CHECK constraint of a table.
func CheckTableConstraints(table *models.Table) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, c := range table.ConstraintsOfType(models.ConstraintCheck) {
		if result := CheckExpressionForInjection(c.Name, c.CheckExpression); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// stringLiterals extracts single-quoted literals, unescaping doubled quotes.
func stringLiterals(expression string) []string {
	var (
		literals []string
		buf      strings.Builder
		inString bool
	)
	runes := []rune(expression)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if !inString {
			if c == '\'' {
				inString = true
				buf.Reset()
			}
			continue
		}
		if c == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				buf.WriteRune('\'')
				i++
				continue
			}
			inString = false
			literals = append(literals, buf.String())
			continue
		}
		buf.WriteRune(c)
	}
	// An unterminated literal is still data.
	if inString && buf.Len() > 0 {
		literals = append(literals, buf.String())
	}
	return literals
}
