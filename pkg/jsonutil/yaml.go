package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToJSON returns data unchanged when it already looks like JSON, otherwise it
// parses data as YAML and re-encodes it as JSON.
func ToJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return trimmed, nil
	}
	return FromYAML(data)
}

// FromYAML converts a YAML document to JSON.
func FromYAML(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}

// normalizeYAML rewrites map[any]any nodes into map[string]any so the tree is JSON-encodable.
func normalizeYAML(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			n, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			n, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			out[FormatScalar(k)] = n
		}
		return out, nil
	case []any:
		for i, child := range val {
			n, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	}
	return v, nil
}
