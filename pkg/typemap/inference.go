package typemap

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const (
	smallIntLimit = 32768
	integerLimit  = 2147483648
	maxStringLen  = 255
)

// IsCompatible reports whether a sample value can be stored in lt.
// Types without a value-level rule accept anything.
func IsCompatible(lt models.LogicalType, value any) bool {
	switch lt {
	case models.TypeInteger, models.TypeSmallInt, models.TypeBigInt:
		_, ok := integerValue(value)
		return ok
	case models.TypeDecimal, models.TypeFloat, models.TypeDouble:
		if _, ok := integerValue(value); ok {
			return true
		}
		return isFloat(value)
	case models.TypeBoolean:
		_, ok := value.(bool)
		return ok
	case models.TypeString, models.TypeText, models.TypeDate, models.TypeTime,
		models.TypeDateTime, models.TypeUUID:
		_, ok := value.(string)
		return ok
	default:
		return true
	}
}

// InferFromSample picks a logical type from the runtime shape of value.
// Decode JSON with UseNumber so integral numbers are not read as floats.
func InferFromSample(value any) models.LogicalType {
	if _, ok := value.(bool); ok {
		return models.TypeBoolean
	}
	if n, ok := integerValue(value); ok {
		switch {
		case n > -smallIntLimit && n < smallIntLimit:
			return models.TypeSmallInt
		case n > -integerLimit && n < integerLimit:
			return models.TypeInteger
		default:
			return models.TypeBigInt
		}
	}
	if isUnsigned(value) {
		return models.TypeBigInt
	}
	if isFloat(value) {
		return models.TypeDecimal
	}
	if s, ok := value.(string); ok {
		if utf8.RuneCountInString(s) > maxStringLen {
			return models.TypeText
		}
		return models.TypeString
	}
	if value != nil {
		switch reflect.TypeOf(value).Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return models.TypeJSON
		}
	}
	return models.TypeString
}

func integerValue(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// isUnsigned reports uint kinds. InferFromSample reaches it only for values
// that overflow int64.
func isUnsigned(value any) bool {
	switch value.(type) {
	case uint, uint64:
		return true
	}
	return false
}

func isFloat(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

type nameRule struct {
	match func(string) bool
	lt    models.LogicalType
}

func contains(subs ...string) func(string) bool {
	return func(name string) bool {
		for _, s := range subs {
			if strings.Contains(name, s) {
				return true
			}
		}
		return false
	}
}

// Rules are checked in order; the first match wins.
var nameRules = []nameRule{
	{func(n string) bool { return strings.HasSuffix(n, "_id") || n == "id" }, models.TypeInteger},
	{func(n string) bool {
		return strings.HasSuffix(n, "_at") || n == "created" || n == "updated" || n == "deleted"
	}, models.TypeDateTime},
	{func(n string) bool { return strings.HasSuffix(n, "_date") || n == "date" }, models.TypeDate},
	{func(n string) bool { return strings.HasPrefix(n, "is_") || strings.HasPrefix(n, "has_") }, models.TypeBoolean},
	{contains("email"), models.TypeString},
	{contains("phone", "mobile"), models.TypeString},
	{contains("description", "content", "body"), models.TypeText},
	{contains("price", "amount", "total"), models.TypeDecimal},
	{contains("count", "quantity", "number"), models.TypeInteger},
	{contains("uuid", "guid"), models.TypeUUID},
}

// InferFromName applies column naming conventions. It returns false when no rule matches.
func InferFromName(columnName string) (models.LogicalType, bool) {
	name := strings.ToLower(columnName)
	for _, rule := range nameRules {
		if rule.match(name) {
			return rule.lt, true
		}
	}
	return "", false
}
