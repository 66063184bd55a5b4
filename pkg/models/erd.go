package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
)

// Placeholders used when an ERD omits a name or type.
const (
	DefaultSchemaName    = "database"
	DefaultEntityName    = "unknown_table"
	DefaultAttributeName = "unknown_column"
	DefaultAttributeType = TypeString
)

// Cardinality describes how many rows on each side of a relationship participate.
type Cardinality string

const (
	Cardinality1To1 Cardinality = "1:1"
	Cardinality1ToN Cardinality = "1:N"
	CardinalityNTo1 Cardinality = "N:1"
	CardinalityNToM Cardinality = "N:M"
)

// ValidCardinalities contains all valid cardinality values.
var ValidCardinalities = []Cardinality{
	Cardinality1To1,
	Cardinality1ToN,
	CardinalityNTo1,
	CardinalityNToM,
}

// IsValidCardinality checks if the given cardinality is valid.
func IsValidCardinality(c Cardinality) bool {
	for _, valid := range ValidCardinalities {
		if c == valid {
			return true
		}
	}
	return false
}

// ReferentialAction is an ON DELETE / ON UPDATE action.
type ReferentialAction string

const (
	ActionCascade    ReferentialAction = "CASCADE"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
	ActionNoAction   ReferentialAction = "NO ACTION"
)

// ValidReferentialActions contains all valid referential actions.
var ValidReferentialActions = []ReferentialAction{
	ActionCascade,
	ActionRestrict,
	ActionSetNull,
	ActionSetDefault,
	ActionNoAction,
}

// IsValidReferentialAction checks if the given action is valid.
func IsValidReferentialAction(a ReferentialAction) bool {
	for _, valid := range ValidReferentialActions {
		if a == valid {
			return true
		}
	}
	return false
}

func (a *ReferentialAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = ReferentialAction(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// Or returns a, or fallback when a is empty.
func (a ReferentialAction) Or(fallback ReferentialAction) ReferentialAction {
	if a == "" {
		return fallback
	}
	return a
}

// ERD is a logical model of entities and the relationships between them.
type ERD struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// SchemaName returns the ERD name or the placeholder.
func (e *ERD) SchemaName() string {
	if e.Name == "" {
		return DefaultSchemaName
	}
	return e.Name
}

// Entity returns the entity with the given name, or nil.
func (e *ERD) Entity(name string) *Entity {
	for i := range e.Entities {
		if e.Entities[i].TableName() == name {
			return &e.Entities[i]
		}
	}
	return nil
}

// Entity is a named set of attributes.
type Entity struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

// TableName returns the entity name or the placeholder.
func (e *Entity) TableName() string {
	if e.Name == "" {
		return DefaultEntityName
	}
	return e.Name
}

// PrimaryKeyAttributes returns the names of all PK-flagged attributes in order.
func (e *Entity) PrimaryKeyAttributes() []string {
	var names []string
	for _, attr := range e.Attributes {
		if attr.PrimaryKey {
			names = append(names, attr.ColumnName())
		}
	}
	return names
}

// Attribute is a typed property of an entity.
type Attribute struct {
	Name string      `json:"name"`
	Type LogicalType `json:"type"`
	TypeParams
	PrimaryKey    bool         `json:"primary_key,omitempty"`
	Nullable      *bool        `json:"nullable,omitempty"`
	Unique        bool         `json:"unique,omitempty"`
	AutoIncrement bool         `json:"auto_increment,omitempty"`
	Default       DefaultValue `json:"default,omitzero"`
	Description   string       `json:"description,omitempty"`
	Check         string       `json:"check,omitempty"`
}

// ColumnName returns the attribute name or the placeholder.
func (a *Attribute) ColumnName() string {
	if a.Name == "" {
		return DefaultAttributeName
	}
	return a.Name
}

// LogicalType returns the attribute type or the placeholder.
func (a *Attribute) LogicalType() LogicalType {
	if a.Type == "" {
		return DefaultAttributeType
	}
	return a.Type
}

// IsNullable reports the effective nullability. Primary-key attributes are never nullable.
func (a *Attribute) IsNullable() bool {
	if a.PrimaryKey {
		return false
	}
	if a.Nullable == nil {
		return true
	}
	return *a.Nullable
}

// DefaultValue records whether a "default" key was present and its raw value.
// An explicit JSON null is Set with a nil Value.
type DefaultValue struct {
	Set   bool
	Value any
}

// IsZero reports whether no default was given.
func (d DefaultValue) IsZero() bool {
	return !d.Set
}

func (d *DefaultValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	d.Set = true
	d.Value = v
	return nil
}

func (d DefaultValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Value)
}

// Relationship connects two entities with a cardinality.
type Relationship struct {
	Name          string            `json:"name,omitempty"`
	FromEntity    string            `json:"from_entity"`
	ToEntity      string            `json:"to_entity"`
	Type          Cardinality       `json:"type,omitempty"`
	FromAttribute string            `json:"from_attribute,omitempty"`
	ToAttribute   string            `json:"to_attribute,omitempty"`
	JunctionTable string            `json:"junction_table,omitempty"`
	OnDelete      ReferentialAction `json:"on_delete,omitempty"`
	OnUpdate      ReferentialAction `json:"on_update,omitempty"`
}

// Cardinality returns the relationship type, defaulting to 1:N.
func (r *Relationship) Cardinality() Cardinality {
	if r.Type == "" {
		return Cardinality1ToN
	}
	return Cardinality(strings.ToUpper(string(r.Type)))
}

// ParseERD decodes and validates an ERD document. Every structural problem is
// reported in one error wrapping apperrors.ErrInvalidERD.
func ParseERD(data []byte) (*ERD, error) {
	var erd ERD
	if err := json.Unmarshal(data, &erd); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidERD, err)
	}
	if err := erd.Validate(); err != nil {
		return nil, err
	}
	return &erd, nil
}

// Validate checks required fields. Unknown cardinalities are allowed here.
func (e *ERD) Validate() error {
	var problems []error

	for i := range e.Entities {
		entity := &e.Entities[i]
		if strings.TrimSpace(entity.Name) == "" {
			problems = append(problems, fmt.Errorf("entities[%d]: name is required", i))
		}
		seen := make(map[string]bool, len(entity.Attributes))
		for j, attr := range entity.Attributes {
			if strings.TrimSpace(attr.Name) == "" {
				problems = append(problems, fmt.Errorf("entities[%d].attributes[%d]: name is required", i, j))
				continue
			}
			if seen[attr.Name] {
				problems = append(problems, fmt.Errorf("entity %q: duplicate attribute %q", entity.Name, attr.Name))
			}
			seen[attr.Name] = true
		}
	}

	for i := range e.Relationships {
		rel := &e.Relationships[i]
		if rel.FromEntity == "" {
			problems = append(problems, fmt.Errorf("relationships[%d]: from_entity is required", i))
		}
		if rel.ToEntity == "" {
			problems = append(problems, fmt.Errorf("relationships[%d]: to_entity is required", i))
		}
		for _, action := range []ReferentialAction{rel.OnDelete, rel.OnUpdate} {
			if action != "" && !IsValidReferentialAction(action) {
				problems = append(problems, fmt.Errorf("relationships[%d]: invalid referential action %q", i, action))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidERD, errors.Join(problems...))
}
