package normalization

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// MinimalCover returns a canonical cover of fds: singleton dependents, no
// extraneous determinant attributes, no dependency implied by the others and
// no duplicates. Output order follows input order.
func MinimalCover(fds []models.FunctionalDependency) []models.FunctionalDependency {
	var singles []models.FunctionalDependency
	for _, fd := range fds {
		for _, name := range fd.Dependent.Sorted() {
			if fd.Determinant.Contains(name) {
				continue
			}
			singles = append(singles, models.FunctionalDependency{
				Determinant: fd.Determinant.Clone(),
				Dependent:   models.NewAttributeSet(name),
			})
		}
	}

	reduced := make([]models.FunctionalDependency, 0, len(singles))
	for _, fd := range singles {
		det := fd.Determinant.Clone()
		for _, name := range fd.Determinant.Sorted() {
			test := det.Minus(models.NewAttributeSet(name))
			if len(test) == 0 {
				continue
			}
			if fd.Dependent.IsSubsetOf(ComputeClosure(test, singles)) {
				det = test
			}
		}
		reduced = appendUnique(reduced, models.FunctionalDependency{Determinant: det, Dependent: fd.Dependent})
	}

	cover := reduced
	for i := 0; i < len(cover); {
		others := make([]models.FunctionalDependency, 0, len(cover)-1)
		others = append(others, cover[:i]...)
		others = append(others, cover[i+1:]...)
		if cover[i].Dependent.IsSubsetOf(ComputeClosure(cover[i].Determinant, others)) {
			cover = others
			continue
		}
		i++
	}
	return cover
}

func appendUnique(fds []models.FunctionalDependency, fd models.FunctionalDependency) []models.FunctionalDependency {
	for _, existing := range fds {
		if existing.Equal(fd) {
			return fds
		}
	}
	return append(fds, fd)
}

type determinantGroup struct {
	determinant models.AttributeSet
	dependents  models.AttributeSet
}

// groupByDeterminant merges dependencies sharing a determinant, in order of
// first appearance.
func groupByDeterminant(fds []models.FunctionalDependency) []*determinantGroup {
	var groups []*determinantGroup
	byKey := make(map[string]*determinantGroup)
	for _, fd := range fds {
		key := fd.Determinant.Key()
		g, ok := byKey[key]
		if !ok {
			g = &determinantGroup{determinant: fd.Determinant, dependents: make(models.AttributeSet)}
			byKey[key] = g
			groups = append(groups, g)
		}
		for name := range fd.Dependent {
			g.dependents.Add(name)
		}
	}
	return groups
}

// Decompose3NF synthesizes 3NF tables from a minimal cover of the
// dependencies lying within table. A table with no such dependencies is
// returned unchanged.
func Decompose3NF(table *models.Table, fds []models.FunctionalDependency) ([]*models.Table, []models.DecompositionChange) {
	return decompose3NF(table, fds, newNaming(table.Name))
}

func decompose3NF(table *models.Table, fds []models.FunctionalDependency, names *naming) ([]*models.Table, []models.DecompositionChange) {
	all := columnSet(table)
	relevant := relevantFDs(fds, all)
	changes := []models.DecompositionChange{}

	cover := MinimalCover(relevant)
	if len(cover) == 0 {
		return []*models.Table{table}, changes
	}

	description := "3NF decomposition from " + table.Name
	var tables []*models.Table
	for _, g := range groupByDeterminant(cover) {
		attrs := g.determinant.Union(g.dependents)
		name := names.next(table.Name, strings.Join(g.determinant.Sorted(), "_"))

		t := subsetTable(table, attrs, name, description)
		setPrimaryKey(t, g.determinant)
		tables = append(tables, t)

		changes = append(changes, models.DecompositionChange{
			Type:            models.ChangeTableCreated,
			OriginalTable:   table.Name,
			NewTables:       []string{name},
			Reason:          fmt.Sprintf("3NF synthesis for FD: %s -> %s", g.determinant.Key(), g.dependents.Key()),
			ColumnsAffected: attrs.Sorted(),
		})
	}

	keys := FindCandidateKeys(all, relevant)
	if !coversKey(tables, keys) && len(keys) > 0 {
		key := keys[0]
		name := names.next(table.Name, "key")
		t := subsetTable(table, key, name, description)
		setPrimaryKey(t, key)
		tables = append(tables, t)

		changes = append(changes, models.DecompositionChange{
			Type:            models.ChangeTableCreated,
			OriginalTable:   table.Name,
			NewTables:       []string{name},
			Reason:          "Added to preserve candidate key: " + key.Key(),
			ColumnsAffected: key.Sorted(),
		})
	}

	tables = removeRedundantTables(tables)
	changes = append(changes, linkTables(table.Name, tables)...)
	repointForeignKeys(tables, map[string][]*models.Table{table.Name: tables})
	return tables, changes
}

func coversKey(tables []*models.Table, keys []models.AttributeSet) bool {
	for _, key := range keys {
		for _, t := range tables {
			if key.IsSubsetOf(columnSet(t)) {
				return true
			}
		}
	}
	return false
}

// removeRedundantTables drops tables whose columns are a proper subset of
// another table's columns.
func removeRedundantTables(tables []*models.Table) []*models.Table {
	out := make([]*models.Table, 0, len(tables))
	for i, t1 := range tables {
		attrs := columnSet(t1)
		redundant := false
		for j, t2 := range tables {
			if i != j && attrs.IsProperSubsetOf(columnSet(t2)) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, t1)
		}
	}
	return out
}

// linkTables adds fk_{t2}_{t1} wherever t2 holds all of t1's primary key
// without being exactly that key, unless t2 already references t1.
func linkTables(original string, tables []*models.Table) []models.DecompositionChange {
	var changes []models.DecompositionChange
	for i, t1 := range tables {
		pk := t1.PrimaryKey()
		if pk == nil || len(pk.Columns) == 0 {
			continue
		}
		pkSet := models.NewAttributeSet(pk.Columns...)

		for j, t2 := range tables {
			if i == j {
				continue
			}
			attrs := columnSet(t2)
			if !pkSet.IsSubsetOf(attrs) || pkSet.Equal(attrs) || hasForeignKeyTo(t2, t1.Name) {
				continue
			}
			fk := addForeignKey(t2, t1, pk.Columns)
			changes = append(changes, models.DecompositionChange{
				Type:            models.ChangeFKAdded,
				OriginalTable:   original,
				NewTables:       []string{t2.Name},
				Reason:          fmt.Sprintf("Foreign key %s references %s", fk.Name, t1.Name),
				ColumnsAffected: pkSet.Sorted(),
			})
		}
	}
	return changes
}
