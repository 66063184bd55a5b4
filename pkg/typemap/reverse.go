package typemap

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// Family groups logical types that store the same kind of value.
type Family string

const (
	FamilyInteger    Family = "integer"
	FamilyNumeric    Family = "numeric"
	FamilyText       Family = "text"
	FamilyBoolean    Family = "boolean"
	FamilyTemporal   Family = "temporal"
	FamilyBinary     Family = "binary"
	FamilyStructured Family = "structured"
	FamilyUUID       Family = "uuid"
)

var families = map[models.LogicalType]Family{
	models.TypeSmallInt:  FamilyInteger,
	models.TypeInteger:   FamilyInteger,
	models.TypeBigInt:    FamilyInteger,
	models.TypeDecimal:   FamilyNumeric,
	models.TypeFloat:     FamilyNumeric,
	models.TypeDouble:    FamilyNumeric,
	models.TypeString:    FamilyText,
	models.TypeText:      FamilyText,
	models.TypeBoolean:   FamilyBoolean,
	models.TypeDate:      FamilyTemporal,
	models.TypeTime:      FamilyTemporal,
	models.TypeDateTime:  FamilyTemporal,
	models.TypeTimestamp: FamilyTemporal,
	models.TypeBinary:    FamilyBinary,
	models.TypeJSON:      FamilyStructured,
	models.TypeArray:     FamilyStructured,
	models.TypeUUID:      FamilyUUID,
}

// FamilyOf returns the family of a logical type, or "" for custom types.
func FamilyOf(lt models.LogicalType) Family {
	return families[lt]
}

// sqlToLogical resolves base type names that are not produced by any dialect
// template, plus the common spellings databases report back.
var sqlToLogical = map[string]models.LogicalType{
	"VARCHAR":                     models.TypeString,
	"CHARACTER VARYING":           models.TypeString,
	"NVARCHAR":                    models.TypeString,
	"CHAR":                        models.TypeString,
	"NCHAR":                       models.TypeString,
	"CHARACTER":                   models.TypeString,
	"TEXT":                        models.TypeText,
	"NTEXT":                       models.TypeText,
	"CLOB":                        models.TypeText,
	"MEDIUMTEXT":                  models.TypeText,
	"LONGTEXT":                    models.TypeText,
	"INT":                         models.TypeInteger,
	"INT4":                        models.TypeInteger,
	"INTEGER":                     models.TypeInteger,
	"MEDIUMINT":                   models.TypeInteger,
	"SERIAL":                      models.TypeInteger,
	"INT2":                        models.TypeSmallInt,
	"SMALLINT":                    models.TypeSmallInt,
	"TINYINT":                     models.TypeSmallInt,
	"SMALLSERIAL":                 models.TypeSmallInt,
	"INT8":                        models.TypeBigInt,
	"BIGINT":                      models.TypeBigInt,
	"BIGSERIAL":                   models.TypeBigInt,
	"DECIMAL":                     models.TypeDecimal,
	"NUMERIC":                     models.TypeDecimal,
	"MONEY":                       models.TypeDecimal,
	"REAL":                        models.TypeFloat,
	"FLOAT4":                      models.TypeFloat,
	"FLOAT":                       models.TypeDouble,
	"FLOAT8":                      models.TypeDouble,
	"DOUBLE":                      models.TypeDouble,
	"DOUBLE PRECISION":            models.TypeDouble,
	"BOOL":                        models.TypeBoolean,
	"BOOLEAN":                     models.TypeBoolean,
	"BIT":                         models.TypeBoolean,
	"DATE":                        models.TypeDate,
	"TIME":                        models.TypeTime,
	"DATETIME":                    models.TypeDateTime,
	"DATETIME2":                   models.TypeDateTime,
	"SMALLDATETIME":               models.TypeDateTime,
	"TIMESTAMP":                   models.TypeTimestamp,
	"TIMESTAMPTZ":                 models.TypeTimestamp,
	"TIMESTAMP WITH TIME ZONE":    models.TypeTimestamp,
	"TIMESTAMP WITHOUT TIME ZONE": models.TypeTimestamp,
	"DATETIMEOFFSET":              models.TypeTimestamp,
	"BYTEA":                       models.TypeBinary,
	"BLOB":                        models.TypeBinary,
	"BINARY":                      models.TypeBinary,
	"VARBINARY":                   models.TypeBinary,
	"JSON":                        models.TypeJSON,
	"JSONB":                       models.TypeJSON,
	"UUID":                        models.TypeUUID,
	"UNIQUEIDENTIFIER":            models.TypeUUID,
	"ARRAY":                       models.TypeArray,
}

var sqlTypePattern = regexp.MustCompile(`^([A-Z][A-Z0-9 ]*?)\s*(?:\(\s*([^)]*)\))?$`)

type sqlTypeParts struct {
	base string
	args []string
}

func splitSQLType(s string) (sqlTypeParts, bool) {
	norm := strings.Join(strings.Fields(strings.ToUpper(s)), " ")
	m := sqlTypePattern.FindStringSubmatch(norm)
	if m == nil {
		return sqlTypeParts{}, false
	}
	parts := sqlTypeParts{base: m[1]}
	if m[2] != "" {
		for _, a := range strings.Split(m[2], ",") {
			parts.args = append(parts.args, strings.TrimSpace(a))
		}
	}
	return parts, true
}

// ParseSQLType maps a rendered SQL type back to a logical type for the
// mapper's dialect. Dialect templates are tried first, in logical type order,
// then base-name aliases.
func (m *Mapper) ParseSQLType(sqlType string) (models.LogicalType, models.TypeParams, bool) {
	input, ok := splitSQLType(sqlType)
	if !ok {
		return "", models.TypeParams{}, false
	}

	for _, lt := range m.order {
		tmpl := m.templates[lt]
		if params, ok := matchTemplate(tmpl, input); ok {
			return lt, params, true
		}
	}

	if lt, ok := sqlToLogical[input.base]; ok {
		return lt, paramsFromArgs(lt, input.args), true
	}
	return "", models.TypeParams{}, false
}

// ParseSQLType is a convenience wrapper building a mapper for dialect.
func ParseSQLType(dialect models.Dialect, sqlType string) (models.LogicalType, models.TypeParams, bool) {
	m, err := NewMapper(dialect)
	if err != nil {
		return "", models.TypeParams{}, false
	}
	return m.ParseSQLType(sqlType)
}

func matchTemplate(tmpl string, input sqlTypeParts) (models.TypeParams, bool) {
	if !placeholderPattern.MatchString(tmpl) {
		want, ok := splitSQLType(tmpl)
		if !ok || want.base != input.base || len(want.args) != len(input.args) {
			return models.TypeParams{}, false
		}
		for i := range want.args {
			if want.args[i] != input.args[i] {
				return models.TypeParams{}, false
			}
		}
		return models.TypeParams{}, true
	}

	want, ok := splitSQLType(placeholderPattern.ReplaceAllStringFunc(tmpl, strings.ToUpper))
	if !ok || want.base != input.base || len(want.args) != len(input.args) {
		return models.TypeParams{}, false
	}
	var params models.TypeParams
	for i, arg := range want.args {
		n, err := strconv.Atoi(input.args[i])
		if err != nil {
			return models.TypeParams{}, false
		}
		switch arg {
		case "{LENGTH}":
			params.Length = models.IntPtr(n)
		case "{PRECISION}":
			params.Precision = models.IntPtr(n)
		case "{SCALE}":
			params.Scale = models.IntPtr(n)
		default:
			return models.TypeParams{}, false
		}
	}
	return params, true
}

func paramsFromArgs(lt models.LogicalType, args []string) models.TypeParams {
	var params models.TypeParams
	ints := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return params
		}
		ints = append(ints, n)
	}
	switch {
	case lt == models.TypeString && len(ints) == 1:
		params.Length = models.IntPtr(ints[0])
	case lt == models.TypeDecimal && len(ints) >= 1:
		params.Precision = models.IntPtr(ints[0])
		if len(ints) == 2 {
			params.Scale = models.IntPtr(ints[1])
		}
	}
	return params
}
