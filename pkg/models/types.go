package models

// LogicalType is a dialect-independent attribute type name.
type LogicalType string

const (
	TypeString    LogicalType = "String"
	TypeText      LogicalType = "Text"
	TypeInteger   LogicalType = "Integer"
	TypeSmallInt  LogicalType = "SmallInt"
	TypeBigInt    LogicalType = "BigInt"
	TypeDecimal   LogicalType = "Decimal"
	TypeFloat     LogicalType = "Float"
	TypeDouble    LogicalType = "Double"
	TypeBoolean   LogicalType = "Boolean"
	TypeDate      LogicalType = "Date"
	TypeTime      LogicalType = "Time"
	TypeDateTime  LogicalType = "DateTime"
	TypeTimestamp LogicalType = "Timestamp"
	TypeBinary    LogicalType = "Binary"
	TypeJSON      LogicalType = "JSON"
	TypeUUID      LogicalType = "UUID"
	TypeArray     LogicalType = "Array"
)

// ValidLogicalTypes contains all built-in logical types.
var ValidLogicalTypes = []LogicalType{
	TypeString, TypeText, TypeInteger, TypeSmallInt, TypeBigInt,
	TypeDecimal, TypeFloat, TypeDouble, TypeBoolean, TypeDate,
	TypeTime, TypeDateTime, TypeTimestamp, TypeBinary, TypeJSON,
	TypeUUID, TypeArray,
}

// IsValidLogicalType checks if the given type is a built-in logical type.
func IsValidLogicalType(t LogicalType) bool {
	for _, valid := range ValidLogicalTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// TypeParams carries optional length/precision/scale parameters.
// A nil field means "use the type's default".
type TypeParams struct {
	Length    *int `json:"length,omitempty"`
	Precision *int `json:"precision,omitempty"`
	Scale     *int `json:"scale,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
