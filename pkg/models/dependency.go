package models

import (
	"sort"
	"strings"
)

// AttributeSet is an unordered set of attribute names.
type AttributeSet map[string]struct{}

// NewAttributeSet builds a set from names.
func NewAttributeSet(names ...string) AttributeSet {
	s := make(AttributeSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set.
func (s AttributeSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts names into the set.
func (s AttributeSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Clone returns a copy of the set.
func (s AttributeSet) Clone() AttributeSet {
	out := make(AttributeSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// Union returns s ∪ other.
func (s AttributeSet) Union(other AttributeSet) AttributeSet {
	out := s.Clone()
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

// Intersect returns s ∩ other.
func (s AttributeSet) Intersect(other AttributeSet) AttributeSet {
	out := make(AttributeSet)
	for n := range s {
		if other.Contains(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Minus returns s − other.
func (s AttributeSet) Minus(other AttributeSet) AttributeSet {
	out := make(AttributeSet)
	for n := range s {
		if !other.Contains(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// IsSubsetOf reports s ⊆ other.
func (s AttributeSet) IsSubsetOf(other AttributeSet) bool {
	for n := range s {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// IsProperSubsetOf reports s ⊂ other.
func (s AttributeSet) IsProperSubsetOf(other AttributeSet) bool {
	return len(s) < len(other) && s.IsSubsetOf(other)
}

// Equal reports whether both sets hold the same names.
func (s AttributeSet) Equal(other AttributeSet) bool {
	return len(s) == len(other) && s.IsSubsetOf(other)
}

// Sorted returns the names in lexical order.
func (s AttributeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Key is a canonical string form usable as a map key.
func (s AttributeSet) Key() string {
	return strings.Join(s.Sorted(), ", ")
}

// FunctionalDependency states that Determinant determines Dependent.
type FunctionalDependency struct {
	Determinant AttributeSet
	Dependent   AttributeSet
}

// NewFD builds a functional dependency from two name lists.
func NewFD(determinant, dependent []string) FunctionalDependency {
	return FunctionalDependency{
		Determinant: NewAttributeSet(determinant...),
		Dependent:   NewAttributeSet(dependent...),
	}
}

// IsTrivial reports whether the dependent side is contained in the determinant.
func (fd FunctionalDependency) IsTrivial() bool {
	return fd.Dependent.IsSubsetOf(fd.Determinant)
}

// Equal compares both sides as sets.
func (fd FunctionalDependency) Equal(other FunctionalDependency) bool {
	return fd.Determinant.Equal(other.Determinant) && fd.Dependent.Equal(other.Dependent)
}

// String renders "a, b -> c, d" with both sides sorted.
func (fd FunctionalDependency) String() string {
	return fd.Determinant.Key() + " -> " + fd.Dependent.Key()
}

// Attributes returns every attribute mentioned by the dependency.
func (fd FunctionalDependency) Attributes() AttributeSet {
	return fd.Determinant.Union(fd.Dependent)
}
