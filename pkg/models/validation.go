package models

// Severity ranks a validation issue or constraint violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is one finding of the DSD validator.
type ValidationIssue struct {
	Severity   Severity `json:"severity"`
	Table      string   `json:"table"`
	Column     *string  `json:"column"`
	Constraint *string  `json:"constraint"`
	Message    string   `json:"message"`
	Code       string   `json:"code"`
}

// ValidationResult aggregates validator issues. Valid is true iff there are no errors.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Issues   []ValidationIssue `json:"issues"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
	Infos    int               `json:"infos"`
	Summary  string            `json:"summary"`
}

// ErrorIssues returns only ERROR-severity issues.
func (r *ValidationResult) ErrorIssues() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// ViolationType classifies a structural constraint violation.
type ViolationType string

const (
	ViolationMissingPrimaryKey       ViolationType = "missing_primary_key"
	ViolationMissingReferencedTable  ViolationType = "missing_referenced_table"
	ViolationMissingReferencedColumn ViolationType = "missing_referenced_column"
	ViolationCircularReference       ViolationType = "circular_reference"
	ViolationDuplicateConstraint     ViolationType = "duplicate_constraint"
	ViolationInvalidForeignKey       ViolationType = "invalid_foreign_key"
	ViolationTypeMismatch            ViolationType = "type_mismatch"
)

// ConstraintViolation is a structural problem found in an ERD or DSD.
type ConstraintViolation struct {
	Type       ViolationType `json:"type"`
	Table      string        `json:"table"`
	Constraint string        `json:"constraint,omitempty"`
	Message    string        `json:"message"`
	Severity   Severity      `json:"severity"`
}
