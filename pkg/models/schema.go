package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
)

// ConstraintType is the closed set of table constraint kinds.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY_KEY"
	ConstraintForeignKey ConstraintType = "FOREIGN_KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintCheck      ConstraintType = "CHECK"
	ConstraintNotNull    ConstraintType = "NOT_NULL"
	ConstraintDefault    ConstraintType = "DEFAULT"
)

// ValidConstraintTypes contains all constraint types.
var ValidConstraintTypes = []ConstraintType{
	ConstraintPrimaryKey,
	ConstraintForeignKey,
	ConstraintUnique,
	ConstraintCheck,
	ConstraintNotNull,
	ConstraintDefault,
}

// ParseConstraintType accepts either the enum name ("PRIMARY_KEY") or the SQL
// keyword form ("PRIMARY KEY"), case-insensitively.
func ParseConstraintType(s string) (ConstraintType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "_")
	for _, ct := range ValidConstraintTypes {
		if string(ct) == norm {
			return ct, nil
		}
	}
	return "", fmt.Errorf("%w: unknown constraint type %q", apperrors.ErrInvalidDSD, s)
}

// SQLKeyword returns the DDL spelling of the constraint type.
func (c ConstraintType) SQLKeyword() string {
	return strings.ReplaceAll(string(c), "_", " ")
}

func (c *ConstraintType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ct, err := ParseConstraintType(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

// Schema is a physical relational model (DSD). Table order is creation order.
type Schema struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Dialect     Dialect  `json:"dialect,omitempty"`
	Tables      []*Table `json:"tables"`
}

// Table returns the first table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableNames returns table names in schema order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := &Schema{
		Name:        s.Name,
		Description: s.Description,
		Dialect:     s.Dialect,
		Tables:      make([]*Table, 0, len(s.Tables)),
	}
	for _, t := range s.Tables {
		out.Tables = append(out.Tables, t.Clone())
	}
	return out
}

// Table owns its columns, constraints and indexes.
type Table struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Columns     []*Column     `json:"columns"`
	Constraints []*Constraint `json:"constraints"`
	Indexes     []*Index      `json:"indexes"`
}

// NewTable creates an empty table with non-nil collections.
func NewTable(name, description string) *Table {
	return &Table{
		Name:        name,
		Description: description,
		Columns:     []*Column{},
		Constraints: []*Constraint{},
		Indexes:     []*Index{},
	}
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// ColumnNames returns column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Constraint returns the constraint with the given name, or nil.
func (t *Table) Constraint(name string) *Constraint {
	for _, c := range t.Constraints {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ConstraintsOfType returns all constraints of the given type in order.
func (t *Table) ConstraintsOfType(ct ConstraintType) []*Constraint {
	var out []*Constraint
	for _, c := range t.Constraints {
		if c.Type == ct {
			out = append(out, c)
		}
	}
	return out
}

// PrimaryKey returns the first PRIMARY_KEY constraint, or nil.
func (t *Table) PrimaryKey() *Constraint {
	for _, c := range t.Constraints {
		if c.Type == ConstraintPrimaryKey {
			return c
		}
	}
	return nil
}

// Index returns the index with the given name, or nil.
func (t *Table) Index(name string) *Index {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name, t.Description)
	for _, c := range t.Columns {
		cc := *c
		if c.DefaultValue != nil {
			v := *c.DefaultValue
			cc.DefaultValue = &v
		}
		out.Columns = append(out.Columns, &cc)
	}
	for _, c := range t.Constraints {
		cc := *c
		cc.Columns = append([]string(nil), c.Columns...)
		cc.ReferencedColumns = append([]string(nil), c.ReferencedColumns...)
		out.Constraints = append(out.Constraints, &cc)
	}
	for _, idx := range t.Indexes {
		ic := *idx
		ic.Columns = append([]string(nil), idx.Columns...)
		out.Indexes = append(out.Indexes, &ic)
	}
	return out
}

// Column is a typed table column. Logical type metadata is kept for round-tripping.
type Column struct {
	Name          string      `json:"name"`
	SQLType       string      `json:"sql_type"`
	Nullable      bool        `json:"nullable"`
	Unique        bool        `json:"unique"`
	AutoIncrement bool        `json:"auto_increment"`
	DefaultValue  *string     `json:"default_value"`
	Description   string      `json:"description"`
	LogicalType   LogicalType `json:"logical_type,omitempty"`
	TypeParams
}

// UnmarshalJSON defaults nullable to true when absent.
func (c *Column) UnmarshalJSON(data []byte) error {
	type columnAlias Column
	aux := struct {
		*columnAlias
		Nullable *bool `json:"nullable"`
	}{columnAlias: (*columnAlias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Nullable = aux.Nullable == nil || *aux.Nullable
	return nil
}

// Constraint is a named table constraint. Referenced fields apply to FOREIGN_KEY only.
type Constraint struct {
	Name              string            `json:"name"`
	Type              ConstraintType    `json:"type"`
	Columns           []string          `json:"columns"`
	ReferencedTable   string            `json:"referenced_table,omitempty"`
	ReferencedColumns []string          `json:"referenced_columns,omitempty"`
	OnDelete          ReferentialAction `json:"on_delete,omitempty"`
	OnUpdate          ReferentialAction `json:"on_update,omitempty"`
	CheckExpression   string            `json:"check_expression,omitempty"`
}

// NewForeignKey builds a FOREIGN_KEY constraint with RESTRICT actions.
func NewForeignKey(name string, columns []string, refTable string, refColumns []string) *Constraint {
	return &Constraint{
		Name:              name,
		Type:              ConstraintForeignKey,
		Columns:           columns,
		ReferencedTable:   refTable,
		ReferencedColumns: refColumns,
		OnDelete:          ActionRestrict,
		OnUpdate:          ActionRestrict,
	}
}

// Index is a named index. Type is advisory (BTREE, HASH, ...).
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Type    string   `json:"index_type,omitempty"`
}

// ParseSchema decodes a DSD document.
func ParseSchema(data []byte) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDSD, err)
	}
	for i, t := range schema.Tables {
		if t == nil {
			return nil, fmt.Errorf("%w: tables[%d] is null", apperrors.ErrInvalidDSD, i)
		}
		if t.Columns == nil {
			t.Columns = []*Column{}
		}
		if t.Constraints == nil {
			t.Constraints = []*Constraint{}
		}
		if t.Indexes == nil {
			t.Indexes = []*Index{}
		}
	}
	if schema.Tables == nil {
		schema.Tables = []*Table{}
	}
	return &schema, nil
}
