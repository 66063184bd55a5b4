package sql

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

var (
	postgresBareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)
	sqliteBareIdentifier   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// postgresReserved lists the reserved keywords that cannot be used as bare
// table or column names in PostgreSQL.
var postgresReserved = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "asymmetric": true, "both": true,
	"case": true, "cast": true, "check": true, "collate": true, "column": true,
	"constraint": true, "create": true, "current_catalog": true, "current_date": true,
	"current_role": true, "current_time": true, "current_timestamp": true,
	"current_user": true, "default": true, "deferrable": true, "desc": true,
	"distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "from": true,
	"grant": true, "group": true, "having": true, "in": true, "initially": true,
	"intersect": true, "into": true, "lateral": true, "leading": true, "limit": true,
	"localtime": true, "localtimestamp": true, "not": true, "null": true,
	"offset": true, "on": true, "only": true, "or": true, "order": true,
	"placing": true, "primary": true, "references": true, "returning": true,
	"select": true, "session_user": true, "some": true, "symmetric": true,
	"table": true, "then": true, "to": true, "trailing": true, "true": true,
	"union": true, "unique": true, "user": true, "using": true, "variadic": true,
	"when": true, "where": true, "window": true, "with": true,
}

// QuoteIdentifier quotes a table, column, constraint or index name for the
// dialect. PostgreSQL names are quoted only when they would otherwise be
// folded or rejected; MySQL and SQL Server names are always quoted; SQLite
// names are quoted only when they contain non-identifier characters.
func QuoteIdentifier(dialect models.Dialect, name string) string {
	switch dialect {
	case models.DialectPostgres:
		if postgresBareIdentifier.MatchString(name) && !postgresReserved[name] {
			return name
		}
		return pgx.Identifier{name}.Sanitize()
	case models.DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case models.DialectMSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	case models.DialectSQLite:
		if sqliteBareIdentifier.MatchString(name) {
			return name
		}
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	default:
		return name
	}
}

// quoteList quotes and comma-joins names.
func quoteList(dialect models.Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(dialect, n)
	}
	return strings.Join(quoted, ", ")
}
