package models

import (
	"fmt"
	"strings"
)

// NormalizationType is the target normal form.
type NormalizationType string

const (
	NormalizationBCNF     NormalizationType = "BCNF"
	NormalizationThirdNF  NormalizationType = "3NF"
	DefaultNormalization                    = NormalizationBCNF
	normalizationTypeHelp                   = `normalization_type must be "BCNF" or "3NF"`
)

// ParseNormalizationType uppercases s and checks it is BCNF or 3NF.
// An empty string resolves to BCNF.
func ParseNormalizationType(s string) (NormalizationType, error) {
	switch NormalizationType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", NormalizationBCNF:
		return NormalizationBCNF, nil
	case NormalizationThirdNF:
		return NormalizationThirdNF, nil
	}
	return "", fmt.Errorf("%s, got %q", normalizationTypeHelp, s)
}

// ChangeType classifies a decomposition change log entry.
type ChangeType string

const (
	ChangeTableSplit   ChangeType = "table_split"
	ChangeTableCreated ChangeType = "table_created"
	ChangeColumnMoved  ChangeType = "column_moved"
	ChangeFKAdded      ChangeType = "fk_added"
)

// DecompositionChange is one structured entry of a decomposer's change log.
type DecompositionChange struct {
	Type            ChangeType `json:"type"`
	OriginalTable   string     `json:"original_table"`
	NewTables       []string   `json:"new_tables"`
	Reason          string     `json:"reason"`
	FDViolated      *string    `json:"fd_violated"`
	ColumnsAffected []string   `json:"columns_affected"`
}

// FDViolation describes a dependency that breaks a normal form.
type FDViolation struct {
	Table       string   `json:"table,omitempty"`
	FD          string   `json:"fd"`
	Determinant []string `json:"determinant"`
	Dependent   []string `json:"dependent"`
}

// NormalizationLevel reports which normal forms a table satisfies.
type NormalizationLevel struct {
	IsBCNF            bool          `json:"is_bcnf"`
	Is3NF             bool          `json:"is_3nf"`
	BCNFViolations    []FDViolation `json:"bcnf_violations"`
	ThirdNFViolations []FDViolation `json:"3nf_violations"`
	CandidateKeys     [][]string    `json:"candidate_keys"`
}

// TableSet wraps a table list for the {tables: [...]} result shape.
type TableSet struct {
	Tables []*Table `json:"tables"`
}

// NormalizationResult aggregates a whole-schema normalization run.
type NormalizationResult struct {
	Success             bool                  `json:"success"`
	Original            TableSet              `json:"original"`
	Normalized          TableSet              `json:"normalized"`
	Changes             []DecompositionChange `json:"changes"`
	NormalizationType   NormalizationType     `json:"normalization_type"`
	ViolationsFound     []FDViolation         `json:"violations_found"`
	IsAlreadyNormalized bool                  `json:"is_already_normalized"`
	SkippedTables       []string              `json:"skipped_tables,omitempty"`
	Error               string                `json:"error,omitempty"`
}

// NormalizedSchema wraps the normalized tables in a schema carrying the
// source schema's name, description and dialect.
func (r *NormalizationResult) NormalizedSchema(source *Schema) *Schema {
	out := &Schema{Tables: r.Normalized.Tables}
	if source != nil {
		out.Name = source.Name
		out.Description = source.Description
		out.Dialect = source.Dialect
	}
	return out
}
