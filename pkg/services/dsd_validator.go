package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/constraints"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	sqlfmt "github.com/ekaya-inc/ekaya-schema/pkg/sql"
	"github.com/ekaya-inc/ekaya-schema/pkg/typemap"
)

// Validation issue codes.
const (
	CodeNoTables                = "NO_TABLES"
	CodeDuplicateTable          = "DUPLICATE_TABLE"
	CodeNoColumns               = "NO_COLUMNS"
	CodeDuplicateColumn         = "DUPLICATE_COLUMN"
	CodeMissingType             = "MISSING_TYPE"
	CodeNoPrimaryKey            = "NO_PRIMARY_KEY"
	CodeMultiplePrimaryKeys     = "MULTIPLE_PRIMARY_KEYS"
	CodeInvalidConstraintColumn = "INVALID_CONSTRAINT_COLUMN"
	CodeInvalidFKTable          = "INVALID_FK_TABLE"
	CodeInvalidFKColumn         = "INVALID_FK_COLUMN"
	CodeFKTypeMismatch          = "FK_TYPE_MISMATCH"
	CodeUnsafeCheckExpression   = "UNSAFE_CHECK_EXPRESSION"
	CodeInvalidDefaultValue     = "INVALID_DEFAULT_VALUE"
	CodeMissingCreatedAt        = "MISSING_CREATED_AT"
	CodeMissingUpdatedAt        = "MISSING_UPDATED_AT"
	CodeTooManyColumns          = "TOO_MANY_COLUMNS"
	CodeFKWithoutIndex          = "FK_WITHOUT_INDEX"
	CodeInconsistentNaming      = "INCONSISTENT_TABLE_NAMING"
)

const maxColumnsPerTable = 50

var (
	createdColumnNames = []string{"created_at", "created", "date_created"}
	updatedColumnNames = []string{"updated_at", "updated", "date_updated"}
)

// DSDValidator checks a transformed schema for correctness and best practices.
type DSDValidator interface {
	// Validate never fails; every problem is returned as an issue. The result
	// is valid iff there are no ERROR-severity issues.
	Validate(ctx context.Context, schema *models.Schema) *models.ValidationResult
}

type dsdValidator struct {
	logger *zap.Logger
}

// NewDSDValidator creates a new DSD validator.
func NewDSDValidator(logger *zap.Logger) DSDValidator {
	return &dsdValidator{
		logger: logger.Named("dsd-validator"),
	}
}

var _ DSDValidator = (*dsdValidator)(nil)

func (v *dsdValidator) Validate(ctx context.Context, schema *models.Schema) *models.ValidationResult {
	var issues []models.ValidationIssue
	issues = append(issues, validateTables(schema)...)
	issues = append(issues, validateColumns(schema)...)
	issues = append(issues, validateDefaults(schema)...)
	issues = append(issues, validateConstraints(schema)...)
	issues = append(issues, validateForeignKeyReferences(schema)...)
	issues = append(issues, checkBestPractices(schema)...)

	result := &models.ValidationResult{Issues: issues}
	if result.Issues == nil {
		result.Issues = []models.ValidationIssue{}
	}
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityError:
			result.Errors++
		case models.SeverityWarning:
			result.Warnings++
		case models.SeverityInfo:
			result.Infos++
		}
	}
	result.Valid = result.Errors == 0
	result.Summary = fmt.Sprintf("%d errors, %d warnings, %d info", result.Errors, result.Warnings, result.Infos)

	v.logger.Debug("Validated DSD",
		zap.String("schema", schema.Name),
		zap.Int("tables", len(schema.Tables)),
		zap.Int("errors", result.Errors),
		zap.Int("warnings", result.Warnings),
		zap.Int("infos", result.Infos))

	return result
}

func issue(sev models.Severity, table, code, message string) models.ValidationIssue {
	return models.ValidationIssue{Severity: sev, Table: table, Code: code, Message: message}
}

func withColumn(i models.ValidationIssue, column string) models.ValidationIssue {
	i.Column = &column
	return i
}

func withConstraint(i models.ValidationIssue, constraint string) models.ValidationIssue {
	i.Constraint = &constraint
	return i
}

// duplicates returns the names that occur more than once, in first-seen order.
func duplicates(names []string) []string {
	counts := make(map[string]int, len(names))
	var order []string
	for _, n := range names {
		if counts[n] == 0 {
			order = append(order, n)
		}
		counts[n]++
	}
	var dups []string
	for _, n := range order {
		if counts[n] > 1 {
			dups = append(dups, n)
		}
	}
	return dups
}

func validateTables(schema *models.Schema) []models.ValidationIssue {
	var issues []models.ValidationIssue

	if len(schema.Tables) == 0 {
		issues = append(issues, issue(models.SeverityError, "<schema>", CodeNoTables, "Schema has no tables defined"))
	}

	for _, dup := range duplicates(schema.TableNames()) {
		issues = append(issues, issue(models.SeverityError, dup, CodeDuplicateTable,
			fmt.Sprintf("Duplicate table name '%s'", dup)))
	}

	for _, table := range schema.Tables {
		if len(table.Columns) == 0 {
			issues = append(issues, issue(models.SeverityError, table.Name, CodeNoColumns,
				fmt.Sprintf("Table '%s' has no columns", table.Name)))
		}
	}
	return issues
}

func validateColumns(schema *models.Schema) []models.ValidationIssue {
	var issues []models.ValidationIssue
	for _, table := range schema.Tables {
		for _, dup := range duplicates(table.ColumnNames()) {
			issues = append(issues, withColumn(issue(models.SeverityError, table.Name, CodeDuplicateColumn,
				fmt.Sprintf("Duplicate column name '%s' in table '%s'", dup, table.Name)), dup))
		}
		for _, col := range table.Columns {
			if strings.TrimSpace(col.SQLType) == "" {
				issues = append(issues, withColumn(issue(models.SeverityError, table.Name, CodeMissingType,
					fmt.Sprintf("Column '%s' has no SQL type defined", col.Name)), col.Name))
			}
		}
	}
	return issues
}

var (
	numericLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	quotedLiteral  = regexp.MustCompile(`^'((?:[^']|'')*)'$`)
	functionCall   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*\((?:[^;()']|'(?:[^']|'')*')*\)$`)
)

// validateDefaults flags numeric columns whose DEFAULT is not a number. A
// quoted number, NULL and a function call such as nextval('seq') are accepted.
func validateDefaults(schema *models.Schema) []models.ValidationIssue {
	dialect := schema.Dialect
	if dialect == "" {
		dialect = models.DialectPostgres
	}

	var issues []models.ValidationIssue
	for _, table := range schema.Tables {
		for _, col := range table.Columns {
			if col.DefaultValue == nil {
				continue
			}
			lt := col.LogicalType
			if lt == "" {
				lt, _, _ = typemap.ParseSQLType(dialect, col.SQLType)
			}
			switch typemap.FamilyOf(lt) {
			case typemap.FamilyInteger, typemap.FamilyNumeric:
			default:
				continue
			}
			if !isNumericDefault(*col.DefaultValue) {
				issues = append(issues, withColumn(issue(models.SeverityError, table.Name, CodeInvalidDefaultValue,
					fmt.Sprintf("Default value %s of numeric column '%s' is not a number", *col.DefaultValue, col.Name)), col.Name))
			}
		}
	}
	return issues
}

func isNumericDefault(expr string) bool {
	expr = strings.TrimSpace(expr)
	for len(expr) > 1 && expr[0] == '(' && expr[len(expr)-1] == ')' && !functionCall.MatchString(expr) {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	if m := quotedLiteral.FindStringSubmatch(expr); m != nil {
		return numericLiteral.MatchString(strings.TrimSpace(m[1]))
	}
	return numericLiteral.MatchString(expr) || strings.EqualFold(expr, "NULL") || functionCall.MatchString(expr)
}

func validateConstraints(schema *models.Schema) []models.ValidationIssue {
	var issues []models.ValidationIssue
	for _, table := range schema.Tables {
		switch pks := table.ConstraintsOfType(models.ConstraintPrimaryKey); {
		case len(pks) == 0:
			issues = append(issues, issue(models.SeverityWarning, table.Name, CodeNoPrimaryKey,
				fmt.Sprintf("Table '%s' has no primary key", table.Name)))
		case len(pks) > 1:
			issues = append(issues, issue(models.SeverityError, table.Name, CodeMultiplePrimaryKeys,
				fmt.Sprintf("Table '%s' has multiple primary keys", table.Name)))
		}

		for _, c := range table.Constraints {
			for _, col := range c.Columns {
				if !table.HasColumn(col) {
					issues = append(issues, withConstraint(issue(models.SeverityError, table.Name, CodeInvalidConstraintColumn,
						fmt.Sprintf("Constraint '%s' references non-existent column '%s'", c.Name, col)), c.Name))
				}
			}
		}

		for _, c := range table.ConstraintsOfType(models.ConstraintCheck) {
			if reason := unsafeCheckReason(c); reason != "" {
				issues = append(issues, withConstraint(issue(models.SeverityError, table.Name, CodeUnsafeCheckExpression,
					fmt.Sprintf("Check constraint '%s' is unsafe: %s", c.Name, reason)), c.Name))
			}
		}
	}
	return issues
}

// unsafeCheckReason returns why a CHECK expression must not be rendered, or "".
func unsafeCheckReason(c *models.Constraint) string {
	if !constraints.ValidateCheckConstraint(c.CheckExpression) {
		return "contains a data-modifying keyword"
	}
	if res := sqlfmt.ValidateAndNormalize(c.CheckExpression); res.Error != nil {
		return "contains a statement separator"
	}
	if res := sqlfmt.CheckExpressionForInjection(c.Name, c.CheckExpression); res != nil {
		return fmt.Sprintf("literal '%s' matches SQL injection pattern %s", res.Literal, res.Fingerprint)
	}
	return ""
}

func validateForeignKeyReferences(schema *models.Schema) []models.ValidationIssue {
	var issues []models.ValidationIssue
	for _, table := range schema.Tables {
		for _, fk := range table.ConstraintsOfType(models.ConstraintForeignKey) {
			ref := schema.Table(fk.ReferencedTable)
			if ref == nil {
				issues = append(issues, withConstraint(issue(models.SeverityError, table.Name, CodeInvalidFKTable,
					fmt.Sprintf("Foreign key references non-existent table '%s'", fk.ReferencedTable)), fk.Name))
				continue
			}

			for _, refCol := range fk.ReferencedColumns {
				if !ref.HasColumn(refCol) {
					issues = append(issues, withConstraint(issue(models.SeverityError, table.Name, CodeInvalidFKColumn,
						fmt.Sprintf("Foreign key references non-existent column '%s' in table '%s'", refCol, ref.Name)), fk.Name))
				}
			}

			// Only the first column pair of a composite key is compared.
			if len(fk.Columns) == 0 || len(fk.ReferencedColumns) == 0 {
				continue
			}
			local, remote := table.Column(fk.Columns[0]), ref.Column(fk.ReferencedColumns[0])
			if local != nil && remote != nil && local.SQLType != remote.SQLType {
				issues = append(issues, withConstraint(issue(models.SeverityWarning, table.Name, CodeFKTypeMismatch,
					fmt.Sprintf("Type mismatch in FK '%s': %s vs %s", fk.Name, local.SQLType, remote.SQLType)), fk.Name))
			}
		}
	}
	return issues
}

func hasAnyColumn(table *models.Table, names []string) bool {
	for _, n := range names {
		if table.HasColumn(n) {
			return true
		}
	}
	return false
}

func checkBestPractices(schema *models.Schema) []models.ValidationIssue {
	var issues []models.ValidationIssue
	for _, table := range schema.Tables {
		if !hasAnyColumn(table, createdColumnNames) {
			issues = append(issues, issue(models.SeverityInfo, table.Name, CodeMissingCreatedAt,
				fmt.Sprintf("Consider adding a 'created_at' timestamp column to '%s'", table.Name)))
		}
		if !hasAnyColumn(table, updatedColumnNames) {
			issues = append(issues, issue(models.SeverityInfo, table.Name, CodeMissingUpdatedAt,
				fmt.Sprintf("Consider adding an 'updated_at' timestamp column to '%s'", table.Name)))
		}

		if n := len(table.Columns); n > maxColumnsPerTable {
			issues = append(issues, issue(models.SeverityWarning, table.Name, CodeTooManyColumns,
				fmt.Sprintf("Table '%s' has %d columns. Consider normalizing.", table.Name, n)))
		}

		indexed := make(map[string]bool, len(table.Indexes))
		for _, idx := range table.Indexes {
			if len(idx.Columns) == 1 {
				indexed[idx.Columns[0]] = true
			}
		}
		seen := make(map[string]bool)
		for _, fk := range table.ConstraintsOfType(models.ConstraintForeignKey) {
			for _, col := range fk.Columns {
				if indexed[col] || seen[col] {
					continue
				}
				seen[col] = true
				issues = append(issues, withColumn(issue(models.SeverityInfo, table.Name, CodeFKWithoutIndex,
					fmt.Sprintf("Consider adding an index on FK column '%s'", col)), col))
			}
		}
	}

	if i, ok := checkTableNaming(schema); ok {
		issues = append(issues, i)
	}
	return issues
}

// checkTableNaming reports a schema that mixes singular and plural table names.
// Names whose singular and plural forms coincide are ignored.
func checkTableNaming(schema *models.Schema) (models.ValidationIssue, bool) {
	var singular, plural []string
	for _, table := range schema.Tables {
		name := strings.ToLower(table.Name)
		if i := strings.LastIndex(name, "_"); i >= 0 {
			name = name[i+1:]
		}
		s, p := inflection.Singular(name), inflection.Plural(name)
		switch {
		case s == p:
		case name == p:
			plural = append(plural, table.Name)
		case name == s:
			singular = append(singular, table.Name)
		}
	}
	if len(singular) == 0 || len(plural) == 0 {
		return models.ValidationIssue{}, false
	}
	sort.Strings(singular)
	sort.Strings(plural)
	return issue(models.SeverityInfo, "<schema>", CodeInconsistentNaming,
		fmt.Sprintf("Table names mix singular (%s) and plural (%s) forms",
			strings.Join(singular, ", "), strings.Join(plural, ", "))), true
}
