// Package normalization implements functional-dependency reasoning and the
// BCNF and 3NF decomposers that run over DSD tables.
package normalization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

var fdSeparator = regexp.MustCompile(`[;\n]`)

// FDSpec is the structured form of one dependency. Each side may be a JSON
// string, parsed with ParseAttributeList, or a list of attribute names.
type FDSpec struct {
	Determinant json.RawMessage `json:"determinant"`
	Dependent   json.RawMessage `json:"dependent"`
}

// ParseFDString parses "A, B -> C; D -> E" style text. Items are separated by
// semicolons or newlines and blank items are ignored. Every other item must
// have exactly one arrow with attributes on both sides.
func ParseFDString(text string) ([]models.FunctionalDependency, error) {
	var fds []models.FunctionalDependency
	var errs []error

	for i, item := range fdSeparator.Split(text, -1) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "->")
		if len(parts) != 2 {
			errs = append(errs, fmt.Errorf("%w: item %d %q must contain exactly one \"->\"", apperrors.ErrInvalidFD, i+1, item))
			continue
		}
		det := ParseAttributeList(parts[0])
		dep := ParseAttributeList(parts[1])
		if len(det) == 0 || len(dep) == 0 {
			errs = append(errs, fmt.Errorf("%w: item %d %q needs attributes on both sides", apperrors.ErrInvalidFD, i+1, item))
			continue
		}
		fds = append(fds, models.NewFD(det, dep))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fds, nil
}

// ParseAttributeList splits one side of a dependency. Commas win over
// whitespace. A single token is one attribute when it contains an underscore,
// is all lowercase or starts with an uppercase letter; otherwise each
// character is an attribute of its own.
func ParseAttributeList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.Contains(s, ",") {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}

	if fields := strings.Fields(s); len(fields) > 1 {
		return fields
	}

	if strings.Contains(s, "_") || isLowerWord(s) || unicode.IsUpper([]rune(s)[0]) {
		return []string{s}
	}

	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// isLowerWord reports whether s has at least one cased letter and no uppercase ones.
func isLowerWord(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// ParseFDList converts structured specs into dependencies.
func ParseFDList(specs []FDSpec) ([]models.FunctionalDependency, error) {
	fds := make([]models.FunctionalDependency, 0, len(specs))
	var errs []error

	for i, spec := range specs {
		det, err := parseSide(spec.Determinant)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: [%d].determinant: %w", apperrors.ErrInvalidFD, i, err))
			continue
		}
		dep, err := parseSide(spec.Dependent)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: [%d].dependent: %w", apperrors.ErrInvalidFD, i, err))
			continue
		}
		if len(det) == 0 || len(dep) == 0 {
			errs = append(errs, fmt.Errorf("%w: [%d] needs a determinant and a dependent", apperrors.ErrInvalidFD, i))
			continue
		}
		fds = append(fds, models.NewFD(det, dep))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fds, nil
}

func parseSide(raw json.RawMessage) ([]string, error) {
	str, list, isString, err := jsonutil.DecodeStringOrList(raw)
	if err != nil {
		return nil, err
	}
	if isString {
		return ParseAttributeList(str), nil
	}
	out := make([]string, 0, len(list))
	for _, name := range list {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// ParseFDInput accepts either the free-text form (a JSON string) or a list of
// FDSpec objects. A missing or null value yields no dependencies.
func ParseFDInput(raw json.RawMessage) ([]models.FunctionalDependency, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidFD, err)
		}
		return ParseFDString(text)
	case '[':
		var specs []FDSpec
		if err := json.Unmarshal(trimmed, &specs); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidFD, err)
		}
		return ParseFDList(specs)
	}
	return nil, fmt.Errorf("%w: functional_dependencies must be a string or list", apperrors.ErrInvalidFD)
}
