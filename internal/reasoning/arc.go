package reasoning

import (
	"fmt"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// Constraint is a binary predicate over two category bindings.
// It returns false when catA=valA and catB=valB cannot both hold.
type Constraint func(catA, valA, catB, valB string) bool

// arc is a directed pair of categories: values of X need support in Y.
type arc struct {
	x, y string
}

// EnforceArcConsistency runs AC-3 over every ordered pair of categories.
//
// A value of X survives only if some value of Y satisfies every constraint. When X and Y
// are the same category the implicit identity constraint applies instead. Like Propagate,
// the run works on a copy: if any domain empties, the store is left untouched and the
// returned steps hold a single failure record.
func EnforceArcConsistency(store *DomainStore, constraints []Constraint) ([]Step, error) {
	work := store.clone()

	var queue []arc
	for _, x := range work.categories {
		for _, y := range work.categories {
			if x != y {
				queue = append(queue, arc{x: x, y: y})
			}
		}
	}

	steps := []Step{{
		Kind:      StepInitialization,
		Algorithm: AlgorithmAC3,
		Message:   fmt.Sprintf("Initialized queue with %d arcs", len(queue)),
		Details:   fmt.Sprintf("%d constraints over %d categories", len(constraints), len(work.categories)),
	}}

	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]

		removed := revise(work, a, constraints)
		if len(removed) == 0 {
			continue
		}
		for _, v := range removed {
			steps = append(steps, Step{
				Kind:      StepElimination,
				Algorithm: AlgorithmAC3Revision,
				Message:   fmt.Sprintf("Removed %s from %s", v, a.x),
				Details:   fmt.Sprintf("No consistent value found in %s", a.y),
			})
		}

		if work.Size(a.x) == 0 {
			err := &ContradictionError{
				Category: a.x,
				Reason:   fmt.Sprintf("no value is consistent with %s", a.y),
			}
			return []Step{{
				Kind:      StepFailure,
				Algorithm: AlgorithmAC3,
				Message:   fmt.Sprintf("Domain of %s became empty", a.x),
				Details:   fmt.Sprintf("%v; domains left unchanged", err),
			}}, err
		}

		for _, z := range work.categories {
			if z != a.x && z != a.y {
				queue = append(queue, arc{x: z, y: a.x})
			}
		}
	}

	steps = append(steps, Step{
		Kind:      StepCompletion,
		Algorithm: AlgorithmAC3,
		Message:   "Arc consistency achieved",
		Details:   "Final domain sizes: " + work.SizeSummary(),
	})
	store.commit(work)
	return steps, nil
}

// revise removes values of a.x with no support in a.y and returns them.
func revise(s *DomainStore, a arc, constraints []Constraint) []string {
	var kept, removed []string
	for _, vx := range s.domains[a.x] {
		supported := false
		for _, vy := range s.domains[a.y] {
			if consistent(a.x, vx, a.y, vy, constraints) {
				supported = true
				break
			}
		}
		if supported {
			kept = append(kept, vx)
		} else {
			removed = append(removed, vx)
		}
	}
	if len(removed) > 0 {
		s.domains[a.x] = kept
	}
	return removed
}

func consistent(catA, valA, catB, valB string, constraints []Constraint) bool {
	if catA == catB {
		return valA == valB
	}
	for _, c := range constraints {
		if !c(catA, valA, catB, valB) {
			return false
		}
	}
	return true
}

// AllDifferent forbids two categories of the same exclusion group from holding the same value.
func (s *DomainStore) AllDifferent() Constraint {
	return func(catA, valA, catB, valB string) bool {
		return valA != valB || !s.excludes(catA, catB)
	}
}

// Forbid rules out a and b holding together.
func Forbid(a, b casefile.Binding) Constraint {
	return func(catA, valA, catB, valB string) bool {
		if catA == a.Category && catB == b.Category {
			return !(valA == a.Value && valB == b.Value)
		}
		if catA == b.Category && catB == a.Category {
			return !(valA == b.Value && valB == a.Value)
		}
		return true
	}
}

// Require makes a and b hold together or not at all.
func Require(a, b casefile.Binding) Constraint {
	return func(catA, valA, catB, valB string) bool {
		if catA == a.Category && catB == b.Category {
			return (valA == a.Value) == (valB == b.Value)
		}
		if catA == b.Category && catB == a.Category {
			return (valA == b.Value) == (valB == a.Value)
		}
		return true
	}
}

// RulesToConstraints converts case rules into predicates bound to the store's exclusion groups.
func RulesToConstraints(store *DomainStore, rules []casefile.Rule) ([]Constraint, error) {
	out := make([]Constraint, 0, len(rules))
	for i, r := range rules {
		switch r.Kind {
		case casefile.RuleAllDifferent:
			out = append(out, store.AllDifferent())
		case casefile.RuleForbid:
			out = append(out, Forbid(r.A, r.B))
		case casefile.RuleRequire:
			out = append(out, Require(r.A, r.B))
		default:
			return nil, fmt.Errorf("rule %d: unknown rule kind: %q", i, r.Kind)
		}
	}
	return out, nil
}
