package normalization

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

type bcnfDecomposer struct {
	names   *naming
	changes []models.DecompositionChange
	lineage map[string][]*models.Table
}

// DecomposeBCNF splits table until no dependency over any fragment violates
// BCNF. Only dependencies lying entirely within the table are considered.
func DecomposeBCNF(table *models.Table, fds []models.FunctionalDependency) ([]*models.Table, []models.DecompositionChange) {
	return decomposeBCNF(table, fds, newNaming(table.Name))
}

func decomposeBCNF(table *models.Table, fds []models.FunctionalDependency, names *naming) ([]*models.Table, []models.DecompositionChange) {
	d := &bcnfDecomposer{
		names:   names,
		changes: []models.DecompositionChange{},
		lineage: make(map[string][]*models.Table),
	}
	tables := d.split(table, relevantFDs(fds, columnSet(table)))
	repointForeignKeys(tables, d.lineage)
	return tables, d.changes
}

func (d *bcnfDecomposer) split(table *models.Table, fds []models.FunctionalDependency) []*models.Table {
	all := columnSet(table)

	var violation *models.FunctionalDependency
	for i := range fds {
		if fds[i].Determinant.IsSubsetOf(all) && IsBCNFViolation(fds[i], all, fds) {
			violation = &fds[i]
			break
		}
	}
	if violation == nil {
		return []*models.Table{table}
	}

	x := violation.Determinant
	y := violation.Dependent.Minus(x)
	r1Attrs := x.Union(y)
	r2Attrs := all.Minus(y).Union(x)

	suffix := "detail"
	if len(x) == 1 {
		suffix = x.Sorted()[0]
	}
	r1Name := d.names.next(table.Name, suffix)
	r2Name := d.names.next(table.Name, "main")
	description := "Decomposed from " + table.Name

	r1FDs := projectFDs(fds, r1Attrs)
	r2FDs := projectFDs(fds, r2Attrs)

	r1 := subsetTable(table, r1Attrs, r1Name, description)
	setPrimaryKey(r1, x)

	r2 := subsetTable(table, r2Attrs, r2Name, description)
	setPrimaryKey(r2, survivingKey(table, r2Attrs, r2FDs))
	addForeignKey(r2, r1, orderedColumns(r1, x))

	fd := violation.String()
	d.changes = append(d.changes, models.DecompositionChange{
		Type:            models.ChangeTableSplit,
		OriginalTable:   table.Name,
		NewTables:       []string{r1Name, r2Name},
		Reason:          fmt.Sprintf("BCNF violation: %s", fd),
		FDViolated:      &fd,
		ColumnsAffected: y.Sorted(),
	})

	leaves := append(d.split(r1, r1FDs), d.split(r2, r2FDs)...)
	d.lineage[table.Name] = leaves
	return leaves
}

// survivingKey keeps the parent's primary key when all of its columns made it
// into attrs, and otherwise falls back to the first candidate key of attrs.
func survivingKey(parent *models.Table, attrs models.AttributeSet, fds []models.FunctionalDependency) models.AttributeSet {
	if pk := parent.PrimaryKey(); pk != nil && len(pk.Columns) > 0 {
		key := models.NewAttributeSet(pk.Columns...)
		if key.IsSubsetOf(attrs) {
			return key
		}
	}
	return FindCandidateKeys(attrs, fds)[0]
}
