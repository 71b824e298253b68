package reasoning

import (
	"errors"
	"fmt"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// Propagate applies one piece of evidence to the store and forward-checks the result.
//
// Structured assertions on the evidence take precedence; otherwise the clue text is
// classified with the given negation markers. Reductions are applied to a working copy
// that replaces the store's domains only if no domain is emptied. On contradiction the
// store is left untouched and the returned steps hold a single failure record.
// Malformed assertions return ErrInvalidEvidence with no steps.
func Propagate(store *DomainStore, evidence *casefile.Evidence, markers []string) ([]Step, error) {
	if err := ValidateEvidence(evidence); err != nil {
		return nil, err
	}
	assertions := evidence.Assertions
	if len(assertions) == 0 {
		assertions = ClassifyClue(evidence.Clue, store, markers)
	}

	work := store.clone()
	source := describeEvidence(evidence)

	var steps []Step
	for _, as := range assertions {
		for _, category := range targets(work, as) {
			step, err := apply(work, category, as, source)
			if errors.Is(err, ErrContradiction) {
				return []Step{failureStep(err)}, err
			}
			if err != nil {
				return nil, err
			}
			if step != nil {
				steps = append(steps, *step)
			}
		}
	}

	steps = append(steps, forwardCheck(work)...)
	store.commit(work)
	return steps, nil
}

// ValidateEvidence checks the structured assertions carried by evidence.
func ValidateEvidence(evidence *casefile.Evidence) error {
	for i, as := range evidence.Assertions {
		if err := as.Kind.Validate(); err != nil {
			return fmt.Errorf("%w: assertion %d: %v", ErrInvalidEvidence, i, err)
		}
		if as.Value == "" {
			return fmt.Errorf("%w: assertion %d: value cannot be empty", ErrInvalidEvidence, i)
		}
	}
	return nil
}

// targets lists the categories an assertion applies to.
// An assertion without a category applies to every category currently holding its value.
func targets(s *DomainStore, as casefile.Assertion) []string {
	if as.Category != "" {
		if _, ok := s.domains[as.Category]; !ok {
			return nil
		}
		return []string{as.Category}
	}
	var out []string
	for _, name := range s.categories {
		if s.Contains(name, as.Value) {
			out = append(out, name)
		}
	}
	return out
}

func apply(s *DomainStore, category string, as casefile.Assertion, source string) (*Step, error) {
	switch as.Kind {
	case casefile.AssertionEliminate:
		if !s.Contains(category, as.Value) {
			return nil, nil
		}
		if s.Size(category) == 1 {
			return nil, &ContradictionError{
				Category: category,
				Value:    as.Value,
				Reason:   fmt.Sprintf("eliminating %s leaves no candidates", as.Value),
			}
		}
		s.remove(category, as.Value)
		return &Step{
			Kind:      StepElimination,
			Algorithm: AlgorithmArcConsistency,
			Message:   fmt.Sprintf("Eliminated %s from %s", as.Value, category),
			Details:   source,
		}, nil

	case casefile.AssertionConfirm:
		if !s.Contains(category, as.Value) {
			return nil, &ContradictionError{
				Category: category,
				Value:    as.Value,
				Reason:   fmt.Sprintf("%s was already eliminated", as.Value),
			}
		}
		if s.Size(category) == 1 {
			return nil, nil
		}
		s.collapse(category, as.Value)
		return &Step{
			Kind:      StepConfirmation,
			Algorithm: AlgorithmDomainReduction,
			Message:   fmt.Sprintf("Confirmed %s as the %s", as.Value, category),
			Details:   source,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown assertion kind: %q", ErrInvalidEvidence, as.Kind)
	}
}

// forwardCheck removes every settled value from the other categories of its exclusion
// group, repeating until no domain changes.
func forwardCheck(s *DomainStore) []Step {
	var steps []Step
	for changed := true; changed; {
		changed = false
		for _, settledCat := range s.categories {
			if s.Size(settledCat) != 1 {
				continue
			}
			settled := TaggedValue{Category: settledCat, Value: s.domains[settledCat][0]}
			for _, other := range s.categories {
				if s.Size(other) <= 1 || !s.linked(settled, TaggedValue{Category: other, Value: settled.Value}) {
					continue
				}
				if !s.remove(other, settled.Value) {
					continue
				}
				changed = true
				steps = append(steps, Step{
					Kind:      StepElimination,
					Algorithm: AlgorithmForwardChecking,
					Message:   fmt.Sprintf("Removed %s from %s", settled.Value, other),
					Details:   fmt.Sprintf("%s is settled as %s", settled.Category, settled.Value),
				})
			}
		}
	}
	return steps
}

func failureStep(err error) Step {
	return Step{
		Kind:      StepFailure,
		Algorithm: AlgorithmDomainReduction,
		Message:   "Contradiction detected",
		Details:   fmt.Sprintf("%v; domains left unchanged", err),
	}
}

func describeEvidence(e *casefile.Evidence) string {
	if e.Clue == "" {
		return fmt.Sprintf("Evidence from '%s'", e.Action)
	}
	return fmt.Sprintf("Evidence from '%s': %s", e.Action, e.Clue)
}
