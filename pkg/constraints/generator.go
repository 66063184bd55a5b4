package constraints

import (
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const checkNameMaxLen = 30

// GeneratePKName returns pk_{table}.
func GeneratePKName(table string) string {
	return "pk_" + table
}

// GenerateFKName returns fk_{table}_{referencedTable}.
func GenerateFKName(table, referencedTable string) string {
	return "fk_" + table + "_" + referencedTable
}

// GenerateUniqueName returns uq_{table}_{column}.
func GenerateUniqueName(table, column string) string {
	return "uq_" + table + "_" + column
}

// GenerateCheckName returns chk_{table}_{description}, where the description
// is lowercased, has spaces replaced by underscores and is cut to 30 characters.
func GenerateCheckName(table, description string) string {
	safe := []rune(strings.ToLower(strings.ReplaceAll(description, " ", "_")))
	if len(safe) > checkNameMaxLen {
		safe = safe[:checkNameMaxLen]
	}
	return "chk_" + table + "_" + string(safe)
}

// GenerateIndexName returns idx_{table}_{column}, or uidx_ for unique indexes.
func GenerateIndexName(table, column string, unique bool) string {
	prefix := "idx"
	if unique {
		prefix = "uidx"
	}
	return prefix + "_" + table + "_" + column
}

// EnsurePrimaryKey adds pk_{table} over defaultColumn when the table has no
// primary key and the column exists. It never invents a column.
// Reports whether a constraint was added.
func EnsurePrimaryKey(table *models.Table, defaultColumn string) bool {
	if defaultColumn == "" {
		defaultColumn = "id"
	}
	if table.PrimaryKey() != nil || !table.HasColumn(defaultColumn) {
		return false
	}
	table.Constraints = append(table.Constraints, &models.Constraint{
		Name:    GeneratePKName(table.Name),
		Type:    models.ConstraintPrimaryKey,
		Columns: []string{defaultColumn},
	})
	return true
}

var checkDenylist = []string{"DROP", "DELETE", "INSERT", "UPDATE", "EXEC", "EXECUTE"}

// ValidateCheckConstraint rejects expressions containing data-modifying
// keywords. It is a substring match, not a parser.
func ValidateCheckConstraint(expression string) bool {
	upper := strings.ToUpper(expression)
	for _, keyword := range checkDenylist {
		if strings.Contains(upper, keyword) {
			return false
		}
	}
	return true
}
