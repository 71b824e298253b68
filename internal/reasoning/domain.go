package reasoning

import (
	"fmt"
	"strings"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// TaggedValue is a candidate value together with the category that owns it.
// Two categories may hold the same literal; their tagged values are still distinct.
type TaggedValue struct {
	Category string
	Value    string
}

func (v TaggedValue) String() string {
	return v.Category + "=" + v.Value
}

// DomainStore holds the still-possible values of every category.
// Domains only shrink, and reductions are applied exclusively by the propagator.
type DomainStore struct {
	categories []string
	domains    map[string][]string
	groups     map[string]int
}

// NewDomainStore creates a store with every category at its full candidate set.
// exclusionGroups lists categories whose values are mutually exclusive; nil puts every
// category in a single group. Categories left out of all groups are isolated.
func NewDomainStore(categories []casefile.Category, exclusionGroups [][]string) (*DomainStore, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}

	s := &DomainStore{
		categories: make([]string, 0, len(categories)),
		domains:    make(map[string][]string, len(categories)),
		groups:     make(map[string]int, len(categories)),
	}
	for _, cat := range categories {
		if err := cat.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.domains[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		s.categories = append(s.categories, cat.Name)
		s.domains[cat.Name] = append([]string(nil), cat.Candidates...)
	}

	if exclusionGroups == nil {
		for _, name := range s.categories {
			s.groups[name] = 0
		}
		return s, nil
	}

	for i, group := range exclusionGroups {
		for _, name := range group {
			if _, ok := s.domains[name]; !ok {
				return nil, fmt.Errorf("exclusion group %d references unknown category %q", i, name)
			}
			if _, dup := s.groups[name]; dup {
				return nil, fmt.Errorf("category %q appears in more than one exclusion group", name)
			}
			s.groups[name] = i
		}
	}
	next := len(exclusionGroups)
	for _, name := range s.categories {
		if _, ok := s.groups[name]; !ok {
			s.groups[name] = next
			next++
		}
	}
	return s, nil
}

// Categories returns category names in definition order.
func (s *DomainStore) Categories() []string {
	return append([]string(nil), s.categories...)
}

// Domain returns a copy of the category's current candidates, or nil for an unknown category.
func (s *DomainStore) Domain(category string) []string {
	d, ok := s.domains[category]
	if !ok {
		return nil
	}
	return append([]string(nil), d...)
}

// Domains returns a copy of every domain keyed by category.
func (s *DomainStore) Domains() map[string][]string {
	out := make(map[string][]string, len(s.domains))
	for name, d := range s.domains {
		out[name] = append([]string(nil), d...)
	}
	return out
}

// Size returns the number of candidates left in the category.
func (s *DomainStore) Size(category string) int {
	return len(s.domains[category])
}

// IsSolved reports whether every domain holds exactly one candidate.
func (s *DomainStore) IsSolved() bool {
	for _, d := range s.domains {
		if len(d) != 1 {
			return false
		}
	}
	return true
}

// PossibleSolutionCount is the product of all domain sizes.
func (s *DomainStore) PossibleSolutionCount() int {
	count := 1
	for _, name := range s.categories {
		count *= len(s.domains[name])
	}
	return count
}

// Unresolved counts categories with more than one candidate.
func (s *DomainStore) Unresolved() int {
	n := 0
	for _, d := range s.domains {
		if len(d) > 1 {
			n++
		}
	}
	return n
}

// ExtractSolution returns the single value of every category, or ErrNotSolved.
func (s *DomainStore) ExtractSolution() (map[string]string, error) {
	if !s.IsSolved() {
		return nil, fmt.Errorf("%w: %d possible solutions remain", ErrNotSolved, s.PossibleSolutionCount())
	}
	solution := make(map[string]string, len(s.domains))
	for name, d := range s.domains {
		solution[name] = d[0]
	}
	return solution, nil
}

// Tagged returns every remaining candidate tagged with its category, in category order.
func (s *DomainStore) Tagged() []TaggedValue {
	var out []TaggedValue
	for _, name := range s.categories {
		for _, v := range s.domains[name] {
			out = append(out, TaggedValue{Category: name, Value: v})
		}
	}
	return out
}

// SizeSummary renders domain sizes as "a=1, b=3" in category order.
func (s *DomainStore) SizeSummary() string {
	parts := make([]string, len(s.categories))
	for i, name := range s.categories {
		parts[i] = fmt.Sprintf("%s=%d", name, len(s.domains[name]))
	}
	return strings.Join(parts, ", ")
}

// Contains reports whether the category still holds the value.
func (s *DomainStore) Contains(category, value string) bool {
	return indexOf(s.domains[category], value) >= 0
}

// excludes reports whether a and b belong to the same exclusion group, so a value
// settled in one cannot also be the answer in the other.
func (s *DomainStore) excludes(a, b string) bool {
	if a == b {
		return false
	}
	ga, okA := s.groups[a]
	gb, okB := s.groups[b]
	return okA && okB && ga == gb
}

// linked reports whether settling a rules out b.
func (s *DomainStore) linked(a, b TaggedValue) bool {
	return a.Value == b.Value && s.excludes(a.Category, b.Category)
}

func (s *DomainStore) clone() *DomainStore {
	out := &DomainStore{
		categories: s.categories,
		domains:    make(map[string][]string, len(s.domains)),
		groups:     s.groups,
	}
	for name, d := range s.domains {
		out.domains[name] = append([]string(nil), d...)
	}
	return out
}

// commit replaces s's domains with those of a working copy.
func (s *DomainStore) commit(work *DomainStore) {
	s.domains = work.domains
}

func (s *DomainStore) remove(category, value string) bool {
	d := s.domains[category]
	i := indexOf(d, value)
	if i < 0 {
		return false
	}
	s.domains[category] = append(d[:i:i], d[i+1:]...)
	return true
}

func (s *DomainStore) collapse(category, value string) {
	s.domains[category] = []string{value}
}

func indexOf(values []string, v string) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return -1
}
