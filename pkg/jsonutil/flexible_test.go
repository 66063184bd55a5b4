package jsonutil

import (
	"encoding/json"
	"testing"
)

func TestFormatScalar(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"integral float", float64(10), "10"},
		{"fractional float", 2.5, "2.5"},
		{"int", 7, "7"},
		{"json number", json.Number("12.50"), "12.50"},
		{"bool", false, "false"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatScalar(tt.input); got != tt.want {
				t.Errorf("FormatScalar(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{"true bool", true, true},
		{"false bool", false, false},
		{"false string", "false", false},
		{"yes-like string", "anything", true},
		{"empty string", "", false},
		{"zero number", json.Number("0"), false},
		{"non-zero number", json.Number("3"), true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.input); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeStringOrList(t *testing.T) {
	str, list, isString, err := DecodeStringOrList(json.RawMessage(`"A -> B"`))
	if err != nil || !isString || str != "A -> B" || list != nil {
		t.Fatalf("string form: got (%q, %v, %v, %v)", str, list, isString, err)
	}

	str, list, isString, err = DecodeStringOrList(json.RawMessage(`["a", "b"]`))
	if err != nil || isString || str != "" || len(list) != 2 {
		t.Fatalf("list form: got (%q, %v, %v, %v)", str, list, isString, err)
	}

	if _, _, _, err := DecodeStringOrList(json.RawMessage(`42`)); err == nil {
		t.Fatal("expected error for a number")
	}
}

func TestToJSON(t *testing.T) {
	yamlDoc := []byte(`
name: shop
entities:
  - name: users
    attributes:
      - name: id
        type: Integer
        primary_key: true
`)
	out, err := ToJSON(yamlDoc)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["name"] != "shop" {
		t.Errorf("name = %v, want shop", decoded["name"])
	}

	jsonDoc := []byte(`  {"name": "x"}`)
	out, err = ToJSON(jsonDoc)
	if err != nil {
		t.Fatalf("ToJSON json: %v", err)
	}
	if string(out) != `{"name": "x"}` {
		t.Errorf("JSON input should pass through trimmed, got %s", out)
	}
}
