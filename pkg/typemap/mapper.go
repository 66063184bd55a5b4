// Package typemap converts logical ERD types to dialect-specific SQL types.
package typemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

var typeMappings = map[models.Dialect]map[models.LogicalType]string{
	models.DialectPostgres: {
		models.TypeString:    "VARCHAR({length})",
		models.TypeText:      "TEXT",
		models.TypeInteger:   "INTEGER",
		models.TypeSmallInt:  "SMALLINT",
		models.TypeBigInt:    "BIGINT",
		models.TypeDecimal:   "DECIMAL({precision},{scale})",
		models.TypeFloat:     "REAL",
		models.TypeDouble:    "DOUBLE PRECISION",
		models.TypeBoolean:   "BOOLEAN",
		models.TypeDate:      "DATE",
		models.TypeTime:      "TIME",
		models.TypeDateTime:  "TIMESTAMP",
		models.TypeTimestamp: "TIMESTAMP",
		models.TypeBinary:    "BYTEA",
		models.TypeJSON:      "JSONB",
		models.TypeUUID:      "UUID",
		models.TypeArray:     "ARRAY",
	},
	models.DialectMySQL: {
		models.TypeString:    "VARCHAR({length})",
		models.TypeText:      "TEXT",
		models.TypeInteger:   "INT",
		models.TypeSmallInt:  "SMALLINT",
		models.TypeBigInt:    "BIGINT",
		models.TypeDecimal:   "DECIMAL({precision},{scale})",
		models.TypeFloat:     "FLOAT",
		models.TypeDouble:    "DOUBLE",
		models.TypeBoolean:   "TINYINT(1)",
		models.TypeDate:      "DATE",
		models.TypeTime:      "TIME",
		models.TypeDateTime:  "DATETIME",
		models.TypeTimestamp: "TIMESTAMP",
		models.TypeBinary:    "BLOB",
		models.TypeJSON:      "JSON",
		models.TypeUUID:      "CHAR(36)",
		models.TypeArray:     "JSON",
	},
	models.DialectMSSQL: {
		models.TypeString:    "NVARCHAR({length})",
		models.TypeText:      "NVARCHAR(MAX)",
		models.TypeInteger:   "INT",
		models.TypeSmallInt:  "SMALLINT",
		models.TypeBigInt:    "BIGINT",
		models.TypeDecimal:   "DECIMAL({precision},{scale})",
		models.TypeFloat:     "FLOAT",
		models.TypeDouble:    "FLOAT(53)",
		models.TypeBoolean:   "BIT",
		models.TypeDate:      "DATE",
		models.TypeTime:      "TIME",
		models.TypeDateTime:  "DATETIME2",
		models.TypeTimestamp: "DATETIME2",
		models.TypeBinary:    "VARBINARY(MAX)",
		models.TypeJSON:      "NVARCHAR(MAX)",
		models.TypeUUID:      "UNIQUEIDENTIFIER",
		models.TypeArray:     "NVARCHAR(MAX)",
	},
	models.DialectSQLite: {
		models.TypeString:    "TEXT",
		models.TypeText:      "TEXT",
		models.TypeInteger:   "INTEGER",
		models.TypeSmallInt:  "INTEGER",
		models.TypeBigInt:    "INTEGER",
		models.TypeDecimal:   "REAL",
		models.TypeFloat:     "REAL",
		models.TypeDouble:    "REAL",
		models.TypeBoolean:   "INTEGER",
		models.TypeDate:      "TEXT",
		models.TypeTime:      "TEXT",
		models.TypeDateTime:  "TEXT",
		models.TypeTimestamp: "TEXT",
		models.TypeBinary:    "BLOB",
		models.TypeJSON:      "TEXT",
		models.TypeUUID:      "TEXT",
		models.TypeArray:     "TEXT",
	},
}

var defaultParams = map[models.LogicalType]models.TypeParams{
	models.TypeString:  {Length: models.IntPtr(255)},
	models.TypeDecimal: {Precision: models.IntPtr(10), Scale: models.IntPtr(2)},
}

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Mapper maps logical types to SQL types for one dialect.
// A Mapper is safe for concurrent reads once constructed; Register is not.
type Mapper struct {
	dialect   models.Dialect
	templates map[models.LogicalType]string
	order     []models.LogicalType
}

// NewMapper returns a mapper for the dialect.
func NewMapper(dialect models.Dialect) (*Mapper, error) {
	builtin, ok := typeMappings[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: postgresql, mysql, mssql, sqlite)", apperrors.ErrUnsupportedDialect, dialect)
	}
	m := &Mapper{
		dialect:   dialect,
		templates: make(map[models.LogicalType]string, len(builtin)),
		order:     append([]models.LogicalType(nil), models.ValidLogicalTypes...),
	}
	for lt, tmpl := range builtin {
		m.templates[lt] = tmpl
	}
	return m, nil
}

// Dialect returns the mapper's dialect.
func (m *Mapper) Dialect() models.Dialect {
	return m.dialect
}

// Register adds or replaces the SQL template for a logical type.
// Templates may use the {length}, {precision} and {scale} placeholders.
func (m *Mapper) Register(lt models.LogicalType, template string) {
	if _, exists := m.templates[lt]; !exists {
		m.order = append(m.order, lt)
	}
	m.templates[lt] = template
}

// Template returns the raw template for a logical type.
func (m *Mapper) Template(lt models.LogicalType) (string, bool) {
	tmpl, ok := m.templates[lt]
	return tmpl, ok
}

// MapType renders the SQL type for lt. Missing params fall back to the type's
// defaults; if a placeholder still has no value the template is returned as is.
func (m *Mapper) MapType(lt models.LogicalType, params models.TypeParams) (string, error) {
	tmpl, ok := m.templates[lt]
	if !ok {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownType, lt)
	}

	values := mergeParams(defaultParams[lt], params)
	missing := false
	rendered := placeholderPattern.ReplaceAllStringFunc(tmpl, func(ph string) string {
		name := ph[1 : len(ph)-1]
		v, ok := values[name]
		if !ok {
			missing = true
			return ph
		}
		return strconv.Itoa(v)
	})
	if missing {
		return tmpl, nil
	}
	return rendered, nil
}

func mergeParams(defaults, given models.TypeParams) map[string]int {
	values := make(map[string]int, 3)
	for name, pair := range map[string][2]*int{
		"length":    {defaults.Length, given.Length},
		"precision": {defaults.Precision, given.Precision},
		"scale":     {defaults.Scale, given.Scale},
	} {
		switch {
		case pair[1] != nil:
			values[name] = *pair[1]
		case pair[0] != nil:
			values[name] = *pair[0]
		}
	}
	return values
}

// DefaultValue renders value as a SQL literal suitable for a DEFAULT clause.
func (m *Mapper) DefaultValue(lt models.LogicalType, value any) string {
	if value == nil {
		return "NULL"
	}

	switch lt {
	case models.TypeString, models.TypeText, models.TypeDate, models.TypeTime,
		models.TypeDateTime, models.TypeTimestamp, models.TypeUUID:
		return quote(jsonutil.FormatScalar(value))
	case models.TypeBoolean:
		truthy := jsonutil.Truthy(value)
		if m.dialect == models.DialectPostgres {
			if truthy {
				return "TRUE"
			}
			return "FALSE"
		}
		if truthy {
			return "1"
		}
		return "0"
	case models.TypeInteger, models.TypeSmallInt, models.TypeBigInt,
		models.TypeDecimal, models.TypeFloat, models.TypeDouble:
		// Only real numbers are written bare; anything else becomes a literal.
		if IsCompatible(lt, value) {
			return jsonutil.FormatScalar(value)
		}
		return quote(jsonutil.FormatScalar(value))
	default:
		return quote(jsonutil.FormatScalar(value))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
