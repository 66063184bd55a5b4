package normalization

import "github.com/ekaya-inc/ekaya-schema/pkg/models"

// IsBCNFViolation reports whether fd is non-trivial and its determinant is
// not a superkey of all.
func IsBCNFViolation(fd models.FunctionalDependency, all models.AttributeSet, fds []models.FunctionalDependency) bool {
	if fd.IsTrivial() {
		return false
	}
	return !IsSuperkey(fd.Determinant, all, fds)
}

// Is3NFViolation reports a BCNF violation whose non-trivial dependent side
// contains at least one attribute outside every candidate key.
func Is3NFViolation(fd models.FunctionalDependency, all models.AttributeSet, fds []models.FunctionalDependency) bool {
	if !IsBCNFViolation(fd, all, fds) {
		return false
	}
	return hasNonPrime(fd, PrimeAttributes(FindCandidateKeys(all, fds)))
}

func hasNonPrime(fd models.FunctionalDependency, prime models.AttributeSet) bool {
	for name := range fd.Dependent.Minus(fd.Determinant) {
		if !prime.Contains(name) {
			return true
		}
	}
	return false
}

// CheckNormalizationLevel evaluates the dependencies that lie entirely within
// the table against BCNF and 3NF.
func CheckNormalizationLevel(table *models.Table, fds []models.FunctionalDependency) models.NormalizationLevel {
	all := columnSet(table)
	relevant := relevantFDs(fds, all)
	keys := FindCandidateKeys(all, relevant)
	prime := PrimeAttributes(keys)

	level := models.NormalizationLevel{
		BCNFViolations:    []models.FDViolation{},
		ThirdNFViolations: []models.FDViolation{},
		CandidateKeys:     keyLists(keys),
	}
	for _, fd := range relevant {
		if !IsBCNFViolation(fd, all, relevant) {
			continue
		}
		level.BCNFViolations = append(level.BCNFViolations, newViolation("", fd))
		if hasNonPrime(fd, prime) {
			level.ThirdNFViolations = append(level.ThirdNFViolations, newViolation("", fd))
		}
	}
	level.IsBCNF = len(level.BCNFViolations) == 0
	level.Is3NF = len(level.ThirdNFViolations) == 0
	return level
}

func newViolation(table string, fd models.FunctionalDependency) models.FDViolation {
	return models.FDViolation{
		Table:       table,
		FD:          fd.String(),
		Determinant: fd.Determinant.Sorted(),
		Dependent:   fd.Dependent.Sorted(),
	}
}

func columnSet(table *models.Table) models.AttributeSet {
	return models.NewAttributeSet(table.ColumnNames()...)
}
