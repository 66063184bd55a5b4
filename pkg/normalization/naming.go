package normalization

import (
	"fmt"
	"strings"
)

// naming hands out fragment table names for one normalization run. The first
// request for a name gets it unchanged; later requests, or requests for a
// reserved name, get the lowest free numeric suffix.
type naming struct {
	taken map[string]bool
	count map[string]int
}

func newNaming(reserved ...string) *naming {
	n := &naming{
		taken: make(map[string]bool, len(reserved)),
		count: make(map[string]int),
	}
	for _, name := range reserved {
		n.taken[name] = true
	}
	return n
}

func (n *naming) reserve(name string) {
	n.taken[name] = true
}

// next returns a fresh name of the form {base}_{suffix}. Spaces in suffix
// become underscores and it is lowercased.
func (n *naming) next(base, suffix string) string {
	suffix = strings.ToLower(strings.ReplaceAll(suffix, " ", "_"))
	name := base + "_" + suffix
	candidate := name
	for n.taken[candidate] {
		n.count[name]++
		candidate = fmt.Sprintf("%s_%d", name, n.count[name])
	}
	n.taken[candidate] = true
	return candidate
}
