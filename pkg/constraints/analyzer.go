// Package constraints detects structural problems in ERDs and DSDs and
// synthesizes canonical constraint names.
package constraints

import (
	"fmt"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/typemap"
)

// Analyzer reports missing keys, dangling references and relationship cycles.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger.Named("constraint-analyzer")}
}

// AnalyzeERD checks an ERD before transformation.
func (a *Analyzer) AnalyzeERD(erd *models.ERD) []models.ConstraintViolation {
	var violations []models.ConstraintViolation

	entityNames := make([]string, 0, len(erd.Entities))
	known := make(map[string]bool, len(erd.Entities))
	for i := range erd.Entities {
		entity := &erd.Entities[i]
		name := entity.Name
		entityNames = append(entityNames, name)
		known[name] = true

		if len(entity.PrimaryKeyAttributes()) == 0 {
			violations = append(violations, models.ConstraintViolation{
				Type:     models.ViolationMissingPrimaryKey,
				Table:    name,
				Message:  fmt.Sprintf("Entity '%s' has no primary key defined", name),
				Severity: models.SeverityError,
			})
		}

		for _, attr := range entity.Attributes {
			if attr.Type == "" || !attr.Default.Set || attr.Default.Value == nil {
				continue
			}
			if !typemap.IsCompatible(attr.Type, attr.Default.Value) {
				violations = append(violations, models.ConstraintViolation{
					Type:     models.ViolationTypeMismatch,
					Table:    name,
					Message:  fmt.Sprintf("Default value %v of '%s.%s' does not fit type %s", attr.Default.Value, name, attr.Name, attr.Type),
					Severity: models.SeverityWarning,
				})
			}
		}
	}

	for _, rel := range erd.Relationships {
		for _, endpoint := range []string{rel.FromEntity, rel.ToEntity} {
			if known[endpoint] {
				continue
			}
			msg := fmt.Sprintf("Relationship references non-existent entity '%s'", endpoint)
			if suggestion := closestName(endpoint, entityNames); suggestion != "" {
				msg += fmt.Sprintf(" (did you mean '%s'?)", suggestion)
			}
			violations = append(violations, models.ConstraintViolation{
				Type:     models.ViolationMissingReferencedTable,
				Table:    endpoint,
				Message:  msg,
				Severity: models.SeverityError,
			})
		}

		if card := rel.Cardinality(); !models.IsValidCardinality(card) {
			violations = append(violations, models.ConstraintViolation{
				Type:     models.ViolationInvalidForeignKey,
				Table:    rel.ToEntity,
				Message:  fmt.Sprintf("Relationship '%s' -> '%s' has unsupported cardinality '%s' and will be ignored", rel.FromEntity, rel.ToEntity, rel.Type),
				Severity: models.SeverityWarning,
			})
		}
	}

	for _, cycle := range DetectCircularReferences(erd.Relationships) {
		violations = append(violations, models.ConstraintViolation{
			Type:     models.ViolationCircularReference,
			Table:    cycle[0],
			Message:  fmt.Sprintf("Circular reference detected: %s", strings.Join(cycle, " -> ")),
			Severity: models.SeverityWarning,
		})
	}

	a.logger.Debug("Analyzed ERD",
		zap.String("schema", erd.SchemaName()),
		zap.Int("entities", len(erd.Entities)),
		zap.Int("violations", len(violations)))

	return violations
}

// AnalyzeDSD checks primary keys and foreign key targets of a transformed schema.
func (a *Analyzer) AnalyzeDSD(schema *models.Schema) []models.ConstraintViolation {
	var violations []models.ConstraintViolation

	for _, table := range schema.Tables {
		pks := table.ConstraintsOfType(models.ConstraintPrimaryKey)
		switch {
		case len(pks) == 0:
			violations = append(violations, models.ConstraintViolation{
				Type:     models.ViolationMissingPrimaryKey,
				Table:    table.Name,
				Message:  fmt.Sprintf("Table '%s' has no primary key", table.Name),
				Severity: models.SeverityError,
			})
		case len(pks) > 1:
			violations = append(violations, models.ConstraintViolation{
				Type:       models.ViolationDuplicateConstraint,
				Table:      table.Name,
				Constraint: pks[1].Name,
				Message:    fmt.Sprintf("Table '%s' has multiple primary keys", table.Name),
				Severity:   models.SeverityError,
			})
		}
	}

	for _, table := range schema.Tables {
		for _, fk := range table.ConstraintsOfType(models.ConstraintForeignKey) {
			ref := schema.Table(fk.ReferencedTable)
			if ref == nil {
				violations = append(violations, models.ConstraintViolation{
					Type:       models.ViolationMissingReferencedTable,
					Table:      table.Name,
					Constraint: fk.Name,
					Message:    fmt.Sprintf("Foreign key '%s' references non-existent table '%s'", fk.Name, fk.ReferencedTable),
					Severity:   models.SeverityError,
				})
				continue
			}
			for _, col := range fk.ReferencedColumns {
				if !ref.HasColumn(col) {
					violations = append(violations, models.ConstraintViolation{
						Type:       models.ViolationMissingReferencedColumn,
						Table:      table.Name,
						Constraint: fk.Name,
						Message:    fmt.Sprintf("Foreign key '%s' references non-existent column '%s' in table '%s'", fk.Name, col, ref.Name),
						Severity:   models.SeverityError,
					})
				}
			}
		}
	}

	return violations
}

// DetectCircularReferences returns every cycle found among relationship edges.
func DetectCircularReferences(relationships []models.Relationship) [][]string {
	g := NewRelationshipGraph()
	for _, rel := range relationships {
		g.AddEdge(rel.FromEntity, rel.ToEntity)
	}
	return g.FindCycles()
}

// closestName returns the candidate within a small edit distance of name, or "".
func closestName(name string, candidates []string) string {
	if name == "" {
		return ""
	}
	limit := len(name) / 3
	if limit < 2 {
		limit = 2
	}

	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings([]rune(strings.ToLower(name)), []rune(strings.ToLower(c)), levenshtein.DefaultOptions)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
