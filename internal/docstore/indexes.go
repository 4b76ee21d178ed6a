package docstore

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// CompositeIndex declares that the backend can serve compound queries over
// the given predicate fields ordered by OrderBy.
type CompositeIndex struct {
	Collection string   `yaml:"collection"`
	Fields     []string `yaml:"fields"`
	OrderBy    string   `yaml:"order_by"`
}

// IndexSet is the set of composite indexes a backend has been provisioned
// with. Backends consult it before executing a compound query.
type IndexSet struct {
	Indexes []CompositeIndex `yaml:"indexes"`
}

// LoadIndexSet reads an index declaration file. A missing path yields an
// empty set, meaning every compound query reports ErrIndexRequired.
func LoadIndexSet(path string) (IndexSet, error) {
	if path == "" {
		return IndexSet{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return IndexSet{}, fmt.Errorf("failed to read index config: %w", err)
	}
	var set IndexSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return IndexSet{}, fmt.Errorf("failed to parse index config: %w", err)
	}
	return set, nil
}

// Covers reports whether the query can be served: simple queries always can,
// compound queries only when a declared index matches their predicate fields
// and sort field exactly.
func (s IndexSet) Covers(q Query) bool {
	if !requiresCompositeIndex(q) {
		return true
	}

	want := make([]string, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		want = append(want, p.Field)
	}
	sort.Strings(want)

	orderField := ""
	if q.OrderBy != nil {
		orderField = q.OrderBy.Field
	}

	for _, idx := range s.Indexes {
		if idx.Collection != q.Collection || idx.OrderBy != orderField {
			continue
		}
		if len(idx.Fields) != len(want) {
			continue
		}
		have := append([]string(nil), idx.Fields...)
		sort.Strings(have)
		match := true
		for i := range have {
			if have[i] != want[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
