package normalization

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// DefaultMaxAttributes bounds the exponential candidate-key search.
const DefaultMaxAttributes = 16

// Normalizer runs the normalization check and decomposition over every table
// of a schema. It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	logger        *zap.Logger
	maxAttributes int
}

// NewNormalizer creates a normalizer. Tables with more than maxAttributes
// columns are skipped; a non-positive value disables the cap.
func NewNormalizer(logger *zap.Logger, maxAttributes int) *Normalizer {
	return &Normalizer{
		logger:        logger.Named("normalizer"),
		maxAttributes: maxAttributes,
	}
}

func (n *Normalizer) tooWide(table *models.Table) bool {
	return n.maxAttributes > 0 && len(table.Columns) > n.maxAttributes
}

// NormalizeSchema checks each table against nt and decomposes only the tables
// with violations. Failures during decomposition are reported in the result
// with Success=false rather than returned.
func (n *Normalizer) NormalizeSchema(ctx context.Context, schema *models.Schema, fds []models.FunctionalDependency, nt models.NormalizationType) (result *models.NormalizationResult) {
	result = &models.NormalizationResult{
		Success:             true,
		Original:            models.TableSet{Tables: []*models.Table{}},
		Normalized:          models.TableSet{Tables: []*models.Table{}},
		Changes:             []models.DecompositionChange{},
		NormalizationType:   nt,
		ViolationsFound:     []models.FDViolation{},
		IsAlreadyNormalized: true,
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Normalization panicked",
				zap.String("schema", schema.Name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			n.fail(result, fmt.Errorf("%v", r))
		}
	}()

	names := newNaming(schema.TableNames()...)
	lineage := make(map[string][]*models.Table)

	for _, table := range schema.Tables {
		if err := ctx.Err(); err != nil {
			n.fail(result, err)
			return result
		}
		original := table.Clone()
		result.Original.Tables = append(result.Original.Tables, original)

		if n.tooWide(table) {
			n.logger.Warn("Skipping table with too many attributes for key search",
				zap.String("table", table.Name),
				zap.Int("columns", len(table.Columns)),
				zap.Int("max_attributes", n.maxAttributes))
			result.SkippedTables = append(result.SkippedTables, table.Name)
			result.Normalized.Tables = append(result.Normalized.Tables, table.Clone())
			continue
		}

		adjusted := adjustFDs(fds, columnSet(table))
		level := CheckNormalizationLevel(table, adjusted)

		violations := level.BCNFViolations
		satisfied := level.IsBCNF
		if nt == models.NormalizationThirdNF {
			violations = level.ThirdNFViolations
			satisfied = level.Is3NF
		}
		if satisfied {
			result.Normalized.Tables = append(result.Normalized.Tables, table.Clone())
			continue
		}

		result.IsAlreadyNormalized = false
		for _, v := range violations {
			v.Table = table.Name
			result.ViolationsFound = append(result.ViolationsFound, v)
		}

		var (
			tables  []*models.Table
			changes []models.DecompositionChange
		)
		if nt == models.NormalizationThirdNF {
			tables, changes = decompose3NF(table.Clone(), adjusted, names)
		} else {
			tables, changes = decomposeBCNF(table.Clone(), adjusted, names)
		}
		lineage[table.Name] = tables
		result.Normalized.Tables = append(result.Normalized.Tables, tables...)
		result.Changes = append(result.Changes, changes...)

		n.logger.Debug("Decomposed table",
			zap.String("table", table.Name),
			zap.String("normalization_type", string(nt)),
			zap.Int("violations", len(violations)),
			zap.Strings("fragments", tableNames(tables)))
	}

	repointForeignKeys(result.Normalized.Tables, lineage)

	n.logger.Info("Normalized schema",
		zap.String("schema", schema.Name),
		zap.String("normalization_type", string(nt)),
		zap.Int("tables_in", len(result.Original.Tables)),
		zap.Int("tables_out", len(result.Normalized.Tables)),
		zap.Bool("already_normalized", result.IsAlreadyNormalized))

	return result
}

func (n *Normalizer) fail(result *models.NormalizationResult, err error) {
	result.Success = false
	result.Error = err.Error()
	result.Normalized.Tables = []*models.Table{}
	result.Changes = []models.DecompositionChange{}
}

// CheckSchema reports the normalization level of every table under the
// dependencies lying entirely within it. Tables over the attribute cap are
// listed in skipped instead.
func (n *Normalizer) CheckSchema(ctx context.Context, schema *models.Schema, fds []models.FunctionalDependency) (map[string]models.NormalizationLevel, []string, error) {
	levels := make(map[string]models.NormalizationLevel, len(schema.Tables))
	var skipped []string
	for _, table := range schema.Tables {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if n.tooWide(table) {
			skipped = append(skipped, table.Name)
			continue
		}
		levels[table.Name] = CheckNormalizationLevel(table, fds)
	}
	return levels, skipped, nil
}

// UnknownAttributes returns the dependency attributes that are not a column
// of any table, and every column name of the schema. Both lists are sorted
// and free of duplicates.
func UnknownAttributes(schema *models.Schema, fds []models.FunctionalDependency) (unknown, available []string) {
	columns := make(models.AttributeSet)
	for _, t := range schema.Tables {
		columns.Add(t.ColumnNames()...)
	}
	missing := make(models.AttributeSet)
	for _, fd := range fds {
		missing = missing.Union(fd.Attributes().Minus(columns))
	}
	unknown = missing.Sorted()
	return unknown, columns.Sorted()
}

func tableNames(tables []*models.Table) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Name)
	}
	return out
}
