package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FormatScalar renders a decoded JSON scalar as plain text. Integral floats
// print without a fractional part; composite values fall back to their JSON encoding.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return FormatScalar(float64(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Truthy reports whether a decoded value counts as true: non-zero numbers,
// parseable true strings or other non-empty strings, and true booleans.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	}
	return true
}

// DecodeStringOrList decodes raw as either a single string or a list of
// strings. isString reports which form was present.
func DecodeStringOrList(raw json.RawMessage) (str string, list []string, isString bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", nil, false, nil
	}
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return "", nil, false, err
		}
		return str, nil, true, nil
	}
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return "", nil, false, fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	return "", list, false, nil
}
