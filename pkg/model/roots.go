package model

import "sort"

// RootSet holds the identities detected as export origins for one load.
type RootSet map[string]struct{}

// NewRootSet creates a root set from ids.
func NewRootSet(ids ...string) RootSet {
	rs := make(RootSet, len(ids))
	for _, id := range ids {
		rs.Add(id)
	}
	return rs
}

// Add marks id as a root.
func (rs RootSet) Add(id string) {
	rs[id] = struct{}{}
}

// Has reports whether id is a root. A nil set has no roots.
func (rs RootSet) Has(id string) bool {
	_, ok := rs[id]
	return ok
}

// Sorted returns the roots in lexicographic order.
func (rs RootSet) Sorted() []string {
	out := make([]string, 0, len(rs))
	for id := range rs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
