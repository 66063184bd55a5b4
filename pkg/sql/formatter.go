package sql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const columnIndent = "    "

// Formatter renders DSD objects as DDL for one dialect.
type Formatter struct {
	dialect models.Dialect
}

// NewFormatter returns a formatter for the dialect.
func NewFormatter(dialect models.Dialect) (*Formatter, error) {
	if !models.IsValidDialect(dialect) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDialect, dialect)
	}
	return &Formatter{dialect: dialect}, nil
}

// Dialect returns the formatter's dialect.
func (f *Formatter) Dialect() models.Dialect {
	return f.dialect
}

// Quote quotes an identifier for the formatter's dialect.
func (f *Formatter) Quote(name string) string {
	return QuoteIdentifier(f.dialect, name)
}

// inlineForeignKeys reports whether FKs must be declared inside CREATE TABLE.
// SQLite cannot add a foreign key with ALTER TABLE.
func (f *Formatter) inlineForeignKeys() bool {
	return f.dialect == models.DialectSQLite
}

// FormatSchema renders the complete script: header, optional drops, tables,
// foreign keys, then indexes.
func (f *Formatter) FormatSchema(schema *models.Schema, includeDrop bool) string {
	var lines []string

	lines = append(lines, "-- Schema: "+schema.Name)
	if schema.Description != "" {
		lines = append(lines, "-- "+schema.Description)
	}
	lines = append(lines, "-- Generated for: "+strings.ToUpper(string(f.dialect)), "")

	if includeDrop {
		lines = append(lines, "-- Drop tables (in reverse order to handle FK dependencies)")
		for i := len(schema.Tables) - 1; i >= 0; i-- {
			lines = append(lines, f.FormatDropTable(schema.Tables[i].Name, true))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "-- Create tables")
	for _, table := range schema.Tables {
		lines = append(lines, f.FormatCreateTable(table), "")
	}

	if fks := f.foreignKeyStatements(schema.Tables); len(fks) > 0 {
		lines = append(lines, "-- Add foreign keys")
		lines = append(lines, fks...)
		lines = append(lines, "")
	}

	if idx := f.indexStatements(schema.Tables); len(idx) > 0 {
		lines = append(lines, "-- Create indexes")
		lines = append(lines, idx...)
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) foreignKeyStatements(tables []*models.Table) []string {
	if f.inlineForeignKeys() {
		return nil
	}
	var out []string
	for _, table := range tables {
		for _, fk := range table.ConstraintsOfType(models.ConstraintForeignKey) {
			out = append(out, f.FormatForeignKey(table.Name, fk))
		}
	}
	return out
}

func (f *Formatter) indexStatements(tables []*models.Table) []string {
	var out []string
	for _, table := range tables {
		for _, idx := range table.Indexes {
			out = append(out, f.FormatCreateIndex(table.Name, idx))
		}
	}
	return out
}

// FormatCreateTable renders one CREATE TABLE statement preceded by the table
// description, if any. PRIMARY KEY, UNIQUE and CHECK constraints are inline.
func (f *Formatter) FormatCreateTable(table *models.Table) string {
	var lines []string
	if table.Description != "" {
		lines = append(lines, "-- "+table.Description)
	}
	lines = append(lines, fmt.Sprintf("CREATE TABLE %s (", f.Quote(table.Name)))

	defs := make([]string, 0, len(table.Columns)+len(table.Constraints))
	for _, col := range table.Columns {
		defs = append(defs, columnIndent+f.FormatColumn(col))
	}
	for _, c := range table.Constraints {
		if def := f.formatInlineConstraint(c); def != "" {
			defs = append(defs, columnIndent+def)
		}
	}

	lines = append(lines, strings.Join(defs, ",\n"), ");")
	return strings.Join(lines, "\n")
}

// FormatColumn renders `name type [NOT NULL] [auto-increment] [DEFAULT v]`.
func (f *Formatter) FormatColumn(col *models.Column) string {
	sqlType := col.SQLType
	notNull := !col.Nullable
	autoInc := ""

	if col.AutoIncrement {
		switch f.dialect {
		case models.DialectPostgres:
			if serial, ok := serialType(sqlType); ok {
				sqlType = serial
				notNull = false
			}
		case models.DialectMySQL:
			autoInc = "AUTO_INCREMENT"
		case models.DialectMSSQL:
			autoInc = "IDENTITY(1,1)"
		}
	}

	parts := []string{f.Quote(col.Name), sqlType}
	if notNull {
		parts = append(parts, "NOT NULL")
	}
	if autoInc != "" {
		parts = append(parts, autoInc)
	}
	if col.DefaultValue != nil && *col.DefaultValue != "" {
		parts = append(parts, "DEFAULT "+*col.DefaultValue)
	}
	return strings.Join(parts, " ")
}

// serialType maps an integer type to its PostgreSQL serial pseudo-type.
func serialType(sqlType string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(sqlType))
	switch {
	case upper == "SMALLINT" || upper == "INT2":
		return "SMALLSERIAL", true
	case upper == "BIGINT" || upper == "INT8":
		return "BIGSERIAL", true
	case strings.Contains(upper, "INTEGER") || upper == "INT" || upper == "INT4":
		return "SERIAL", true
	}
	return "", false
}

func (f *Formatter) formatInlineConstraint(c *models.Constraint) string {
	name := f.Quote(c.Name)
	switch c.Type {
	case models.ConstraintPrimaryKey:
		return fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", name, quoteList(f.dialect, c.Columns))
	case models.ConstraintUnique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", name, quoteList(f.dialect, c.Columns))
	case models.ConstraintCheck:
		if c.CheckExpression == "" {
			return ""
		}
		return fmt.Sprintf("CONSTRAINT %s CHECK (%s)", name, c.CheckExpression)
	case models.ConstraintForeignKey:
		if !f.inlineForeignKeys() {
			return ""
		}
		return fmt.Sprintf("CONSTRAINT %s %s", name, f.referenceClause(c))
	default:
		// NOT_NULL and DEFAULT are expressed on the column definition.
		return ""
	}
}

// FormatForeignKey renders an ALTER TABLE ... ADD CONSTRAINT ... FOREIGN KEY statement.
func (f *Formatter) FormatForeignKey(tableName string, fk *models.Constraint) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;",
		f.Quote(tableName), f.Quote(fk.Name), f.referenceClause(fk))
}

func (f *Formatter) referenceClause(fk *models.Constraint) string {
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteList(f.dialect, fk.Columns),
		f.Quote(fk.ReferencedTable),
		quoteList(f.dialect, fk.ReferencedColumns))
	if fk.OnDelete != "" {
		clause += " ON DELETE " + f.referentialAction(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + f.referentialAction(fk.OnUpdate)
	}
	return clause
}

// referentialAction spells an action for the dialect. SQL Server has no
// RESTRICT; NO ACTION has the same effect there.
func (f *Formatter) referentialAction(a models.ReferentialAction) string {
	if f.dialect == models.DialectMSSQL && a == models.ActionRestrict {
		return string(models.ActionNoAction)
	}
	return string(a)
}

// FormatCreateIndex renders CREATE [UNIQUE ]INDEX.
func (f *Formatter) FormatCreateIndex(tableName string, idx *models.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
		unique, f.Quote(idx.Name), f.Quote(tableName), quoteList(f.dialect, idx.Columns))
}

// FormatDropTable renders DROP TABLE. The IF EXISTS form used by the drop block
// also cascades, but only where the dialect accepts CASCADE.
func (f *Formatter) FormatDropTable(tableName string, ifExists bool) string {
	var b strings.Builder
	b.WriteString("DROP TABLE ")
	if ifExists {
		b.WriteString("IF EXISTS ")
	}
	b.WriteString(f.Quote(tableName))
	if ifExists && (f.dialect == models.DialectPostgres || f.dialect == models.DialectMySQL) {
		b.WriteString(" CASCADE")
	}
	b.WriteString(";")
	return b.String()
}
