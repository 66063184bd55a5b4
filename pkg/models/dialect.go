package models

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
)

// Dialect identifies a target SQL dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgresql"
	DialectMySQL    Dialect = "mysql"
	DialectMSSQL    Dialect = "mssql"
	DialectSQLite   Dialect = "sqlite"
)

// ValidDialects contains all supported dialects.
var ValidDialects = []Dialect{
	DialectPostgres,
	DialectMySQL,
	DialectMSSQL,
	DialectSQLite,
}

var dialectAliases = map[string]Dialect{
	"postgresql": DialectPostgres,
	"postgres":   DialectPostgres,
	"mysql":      DialectMySQL,
	"mssql":      DialectMSSQL,
	"sqlserver":  DialectMSSQL,
	"sqlite":     DialectSQLite,
	"sqlite3":    DialectSQLite,
}

// IsValidDialect checks if the given dialect is supported.
func IsValidDialect(d Dialect) bool {
	for _, valid := range ValidDialects {
		if d == valid {
			return true
		}
	}
	return false
}

// ParseDialect resolves a dialect name, accepting common aliases.
// An empty name resolves to postgresql.
func ParseDialect(name string) (Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return DialectPostgres, nil
	}
	if d, ok := dialectAliases[key]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDialect, name)
}
