package normalization

import (
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/constraints"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// subsetTable copies the columns of original that are in attrs, keeping
// column order. Non-key constraints whose columns all survive come along;
// the primary key never does.
func subsetTable(original *models.Table, attrs models.AttributeSet, name, description string) *models.Table {
	clone := original.Clone()
	out := models.NewTable(name, description)

	for _, col := range clone.Columns {
		if attrs.Contains(col.Name) {
			out.Columns = append(out.Columns, col)
		}
	}
	for _, c := range clone.Constraints {
		if c.Type == models.ConstraintPrimaryKey || len(c.Columns) == 0 {
			continue
		}
		if models.NewAttributeSet(c.Columns...).IsSubsetOf(attrs) {
			c.Name = renamePrefix(c.Name, original.Name, name)
			out.Constraints = append(out.Constraints, c)
		}
	}
	for _, idx := range clone.Indexes {
		if models.NewAttributeSet(idx.Columns...).IsSubsetOf(attrs) {
			idx.Name = renamePrefix(idx.Name, original.Name, name)
			out.Indexes = append(out.Indexes, idx)
		}
	}
	return out
}

var generatedPrefixes = []string{"idx_", "uidx_", "uq_", "chk_", "fk_"}

// renamePrefix rewrites generated names such as idx_{old}_col so they stay
// unique once the columns are copied into a new table.
func renamePrefix(name, oldTable, newTable string) string {
	for _, prefix := range generatedPrefixes {
		if rest, ok := strings.CutPrefix(name, prefix+oldTable+"_"); ok && rest != "" {
			return prefix + newTable + "_" + rest
		}
	}
	return name
}

// orderedColumns lists the members of attrs in the table's column order.
func orderedColumns(table *models.Table, attrs models.AttributeSet) []string {
	out := make([]string, 0, len(attrs))
	for _, col := range table.Columns {
		if attrs.Contains(col.Name) {
			out = append(out, col.Name)
		}
	}
	return out
}

// setPrimaryKey replaces any primary key of table with pk_{table} over key.
func setPrimaryKey(table *models.Table, key models.AttributeSet) {
	kept := table.Constraints[:0]
	for _, c := range table.Constraints {
		if c.Type != models.ConstraintPrimaryKey {
			kept = append(kept, c)
		}
	}
	pk := &models.Constraint{
		Name:    constraints.GeneratePKName(table.Name),
		Type:    models.ConstraintPrimaryKey,
		Columns: orderedColumns(table, key),
	}
	table.Constraints = append([]*models.Constraint{pk}, kept...)
}

// addForeignKey adds fk_{source}_{target} over columns with CASCADE actions.
func addForeignKey(source, target *models.Table, columns []string) *models.Constraint {
	fk := models.NewForeignKey(
		constraints.GenerateFKName(source.Name, target.Name),
		append([]string(nil), columns...),
		target.Name,
		append([]string(nil), columns...))
	fk.OnDelete = models.ActionCascade
	fk.OnUpdate = models.ActionCascade
	source.Constraints = append(source.Constraints, fk)
	return fk
}

func hasForeignKeyTo(table *models.Table, referenced string) bool {
	for _, c := range table.ConstraintsOfType(models.ConstraintForeignKey) {
		if c.ReferencedTable == referenced {
			return true
		}
	}
	return false
}

// repointForeignKeys retargets foreign keys that reference a table which was
// split. lineage maps a split table name to its final fragments. The new
// target is the fragment whose primary key is exactly the referenced columns,
// or failing that the first fragment holding all of them.
func repointForeignKeys(tables []*models.Table, lineage map[string][]*models.Table) {
	if len(lineage) == 0 {
		return
	}
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t.Name] = true
	}

	for _, t := range tables {
		for _, fk := range t.ConstraintsOfType(models.ConstraintForeignKey) {
			fragments, split := lineage[fk.ReferencedTable]
			if !split || present[fk.ReferencedTable] {
				continue
			}
			if target := fragmentFor(fragments, fk.ReferencedColumns); target != nil {
				fk.ReferencedTable = target.Name
			}
		}
	}
}

func fragmentFor(fragments []*models.Table, columns []string) *models.Table {
	want := models.NewAttributeSet(columns...)
	for _, f := range fragments {
		if pk := f.PrimaryKey(); pk != nil && models.NewAttributeSet(pk.Columns...).Equal(want) {
			return f
		}
	}
	for _, f := range fragments {
		if want.IsSubsetOf(columnSet(f)) {
			return f
		}
	}
	return nil
}
