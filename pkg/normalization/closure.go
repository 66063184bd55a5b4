package normalization

import "github.com/ekaya-inc/ekaya-schema/pkg/models"

// ComputeClosure returns X+ under fds: X plus every attribute reachable by
// repeatedly applying dependencies whose determinant is already covered.
func ComputeClosure(attrs models.AttributeSet, fds []models.FunctionalDependency) models.AttributeSet {
	closure := attrs.Clone()
	for changed := true; changed; {
		changed = false
		for _, fd := range fds {
			if !fd.Determinant.IsSubsetOf(closure) {
				continue
			}
			for name := range fd.Dependent {
				if !closure.Contains(name) {
					closure.Add(name)
					changed = true
				}
			}
		}
	}
	return closure
}

// IsSuperkey reports whether attrs determines every attribute of all.
func IsSuperkey(attrs, all models.AttributeSet, fds []models.FunctionalDependency) bool {
	return all.IsSubsetOf(ComputeClosure(attrs, fds))
}

// relevantFDs keeps the dependencies that lie entirely within attrs.
func relevantFDs(fds []models.FunctionalDependency, attrs models.AttributeSet) []models.FunctionalDependency {
	out := make([]models.FunctionalDependency, 0, len(fds))
	for _, fd := range fds {
		if fd.Determinant.IsSubsetOf(attrs) && fd.Dependent.IsSubsetOf(attrs) {
			out = append(out, fd)
		}
	}
	return out
}

// projectFDs restricts fds to attrs: the determinant must survive whole, the
// dependent is cut down to attrs and dropped when nothing new remains.
func projectFDs(fds []models.FunctionalDependency, attrs models.AttributeSet) []models.FunctionalDependency {
	out := make([]models.FunctionalDependency, 0, len(fds))
	for _, fd := range fds {
		if !fd.Determinant.IsSubsetOf(attrs) {
			continue
		}
		dep := fd.Dependent.Intersect(attrs)
		if len(dep) == 0 || dep.Equal(fd.Determinant) {
			continue
		}
		out = append(out, models.FunctionalDependency{
			Determinant: fd.Determinant.Clone(),
			Dependent:   dep,
		})
	}
	return out
}

// adjustFDs fits schema-wide dependencies to one table: the determinant must
// be present, the dependent is intersected with the table's attributes and
// dropped when it adds nothing beyond the determinant.
func adjustFDs(fds []models.FunctionalDependency, attrs models.AttributeSet) []models.FunctionalDependency {
	out := make([]models.FunctionalDependency, 0, len(fds))
	for _, fd := range fds {
		if !fd.Determinant.IsSubsetOf(attrs) {
			continue
		}
		dep := fd.Dependent.Intersect(attrs)
		if len(dep) == 0 || dep.IsSubsetOf(fd.Determinant) {
			continue
		}
		out = append(out, models.FunctionalDependency{
			Determinant: fd.Determinant.Clone(),
			Dependent:   dep,
		})
	}
	return out
}
