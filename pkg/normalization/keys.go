package normalization

import "github.com/ekaya-inc/ekaya-schema/pkg/models"

// FindCandidateKeys searches subsets of all in increasing size and returns the
// minimal superkeys of the first size that has any. Subsets of one size are
// tried in lexical order of their sorted members. The search is exponential
// in len(all); callers cap the attribute count before getting here.
//
// When no subset qualifies, which only happens for an empty relation, the
// whole attribute set is returned as the single key.
func FindCandidateKeys(all models.AttributeSet, fds []models.FunctionalDependency) []models.AttributeSet {
	names := all.Sorted()
	var keys []models.AttributeSet

	for size := 1; size <= len(names); size++ {
		forEachCombination(names, size, func(combo []string) {
			candidate := models.NewAttributeSet(combo...)
			if !IsSuperkey(candidate, all, fds) {
				return
			}
			for _, k := range keys {
				if k.IsSubsetOf(candidate) {
					return
				}
			}
			keys = append(keys, candidate)
		})
		if len(keys) > 0 {
			return keys
		}
	}
	return []models.AttributeSet{all.Clone()}
}

// forEachCombination calls fn with every size-k combination of items, in
// lexical index order. fn must not retain the slice.
func forEachCombination(items []string, k int, fn func([]string)) {
	if k <= 0 || k > len(items) {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	combo := make([]string, k)
	for {
		for i, j := range idx {
			combo[i] = items[j]
		}
		fn(combo)

		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// PrimeAttributes is the union of the given candidate keys.
func PrimeAttributes(keys []models.AttributeSet) models.AttributeSet {
	prime := make(models.AttributeSet)
	for _, k := range keys {
		for name := range k {
			prime.Add(name)
		}
	}
	return prime
}

func keyLists(keys []models.AttributeSet) [][]string {
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Sorted())
	}
	return out
}
