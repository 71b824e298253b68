package reasoning

import (
	"errors"
	"fmt"
)

var (
	// ErrContradiction reports that a reduction would empty a domain. The case cannot
	// be solved under the evidence received so far.
	ErrContradiction = errors.New("contradiction detected")

	// ErrNotSolved is returned when a solution is requested before every domain is a singleton.
	ErrNotSolved = errors.New("case not solved")

	// ErrNoActionsAvailable is returned when selection is requested with no actions on offer.
	ErrNoActionsAvailable = errors.New("no actions available")

	// ErrInvalidAction is returned when an action id is not in the offered set.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidEvidence is returned for evidence carrying malformed assertions.
	// The engine rejects it without changing any state.
	ErrInvalidEvidence = errors.New("invalid evidence")
)

// ContradictionError describes which domain a failed reduction would have emptied.
// It matches ErrContradiction with errors.Is.
type ContradictionError struct {
	Category string
	Value    string
	Reason   string
}

func (e *ContradictionError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s=%s: %s", ErrContradiction, e.Category, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrContradiction, e.Category, e.Reason)
}

func (e *ContradictionError) Unwrap() error {
	return ErrContradiction
}
