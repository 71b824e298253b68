// Package casefile provides the shared case data model and Redis schema for sleuth.
// Cases, actions and evidence are the only state shared between the CLI, the watcher
// and the reasoning engine.
package casefile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Case is a deduction puzzle together with its play state.
// Actions holds only the actions still available; executed actions move to Evidence.
type Case struct {
	ID              string            `json:"id"`                         // UUID
	Title           string            `json:"title"`                      // Display name
	Categories      []Category        `json:"categories"`                 // Ordered puzzle variables
	Actions         []Action          `json:"actions"`                    // Still-available actions, in offering order
	Evidence        []Evidence        `json:"evidence"`                   // Executed actions, oldest first
	TotalCost       int               `json:"total_cost"`                 // Sum of executed action costs
	Rules           []Rule            `json:"rules,omitempty"`            // Explicit binary constraints
	ExclusionGroups [][]string        `json:"exclusion_groups,omitempty"` // Categories whose values are mutually exclusive; nil = all
	Solution        map[string]string `json:"solution,omitempty"`         // category → value, for validation only
	CreatedAtMs     int64             `json:"created_at_ms"`
}

// Category is a named puzzle variable with its full candidate set.
type Category struct {
	Name       string   `json:"name" yaml:"name"`
	Candidates []string `json:"candidates" yaml:"candidates"`
}

// Action is an investigative step offered for a case.
// Eliminates is a prediction used only to estimate information gain.
// Clue and Assertions are the outcome revealed when the action is executed.
type Action struct {
	ID         string      `json:"id" yaml:"id"`
	Label      string      `json:"label" yaml:"label"`
	Cost       int         `json:"cost" yaml:"cost"`
	Eliminates []string    `json:"eliminates,omitempty" yaml:"eliminates,omitempty"`
	Clue       string      `json:"clue,omitempty" yaml:"clue"`
	Assertions []Assertion `json:"assertions,omitempty" yaml:"assertions,omitempty"`
}

// Evidence is the result of executing an action.
type Evidence struct {
	ActionID     string      `json:"action_id"`
	Action       string      `json:"action"` // Label of the executed action
	Clue         string      `json:"clue"`
	Cost         int         `json:"cost"`
	Assertions   []Assertion `json:"assertions,omitempty"`
	RecordedAtMs int64       `json:"recorded_at_ms"`
}

// AssertionKind says whether a clue confirms or eliminates a value.
type AssertionKind string

const (
	// AssertionEliminate removes the value from the category's domain
	AssertionEliminate AssertionKind = "eliminate"

	// AssertionConfirm collapses the category's domain to the value
	AssertionConfirm AssertionKind = "confirm"
)

// Assertion is the structured form of a clue: {kind, category, value}.
// Category may be empty, in which case every category holding Value is affected.
type Assertion struct {
	Kind     AssertionKind `json:"kind" yaml:"kind"`
	Category string        `json:"category,omitempty" yaml:"category,omitempty"`
	Value    string        `json:"value" yaml:"value"`
}

// RuleKind names a binary constraint template.
type RuleKind string

const (
	// RuleAllDifferent forbids two categories in the same exclusion group from binding equal values
	RuleAllDifferent RuleKind = "all_different"

	// RuleForbid forbids A and B from both holding
	RuleForbid RuleKind = "forbid"

	// RuleRequire says A implies B (and B implies A)
	RuleRequire RuleKind = "require"
)

// Rule is an explicit binary constraint between two category bindings.
type Rule struct {
	Kind RuleKind `json:"kind" yaml:"kind"`
	A    Binding  `json:"a,omitempty" yaml:"a,omitempty"`
	B    Binding  `json:"b,omitempty" yaml:"b,omitempty"`
}

// Binding pins a category to a value.
type Binding struct {
	Category string `json:"category" yaml:"category"`
	Value    string `json:"value" yaml:"value"`
}

// ErrNoSolution is returned when accusing a case stored without a solution.
var ErrNoSolution = errors.New("case has no recorded solution")

// Accusation is the outcome of comparing a guess with the case solution.
type Accusation struct {
	Correct  bool              `json:"correct"`
	Wrong    []string          `json:"wrong,omitempty"` // Categories guessed wrongly, in category order
	Solution map[string]string `json:"solution"`
}

// Accuse compares a full guess, one value per category, with the recorded solution.
func (c *Case) Accuse(guess map[string]string) (*Accusation, error) {
	if c.Solution == nil {
		return nil, ErrNoSolution
	}
	for name := range guess {
		if _, ok := c.Category(name); !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
	}

	result := &Accusation{Correct: true, Solution: make(map[string]string, len(c.Solution))}
	for _, cat := range c.Categories {
		value, ok := guess[cat.Name]
		if !ok {
			return nil, fmt.Errorf("guess is missing category %q", cat.Name)
		}
		if value != c.Solution[cat.Name] {
			result.Correct = false
			result.Wrong = append(result.Wrong, cat.Name)
		}
		result.Solution[cat.Name] = c.Solution[cat.Name]
	}
	return result, nil
}

// Reveal produces the evidence obtained by executing the action.
func (a *Action) Reveal(now time.Time) *Evidence {
	var assertions []Assertion
	if len(a.Assertions) > 0 {
		assertions = append([]Assertion(nil), a.Assertions...)
	}
	return &Evidence{
		ActionID:     a.ID,
		Action:       a.Label,
		Clue:         a.Clue,
		Cost:         a.Cost,
		Assertions:   assertions,
		RecordedAtMs: now.UnixMilli(),
	}
}

// FindAction returns the available action with the given id.
func (c *Case) FindAction(actionID string) (*Action, bool) {
	for i := range c.Actions {
		if c.Actions[i].ID == actionID {
			return &c.Actions[i], true
		}
	}
	return nil, false
}

// Category returns the category with the given name.
func (c *Case) Category(name string) (*Category, bool) {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the case.
func (c *Case) Clone() *Case {
	out := *c
	out.Categories = make([]Category, len(c.Categories))
	for i, cat := range c.Categories {
		out.Categories[i] = Category{Name: cat.Name, Candidates: append([]string(nil), cat.Candidates...)}
	}
	out.Actions = make([]Action, len(c.Actions))
	for i, a := range c.Actions {
		out.Actions[i] = a.clone()
	}
	out.Evidence = make([]Evidence, len(c.Evidence))
	for i, e := range c.Evidence {
		e.Assertions = append([]Assertion(nil), e.Assertions...)
		out.Evidence[i] = e
	}
	out.Rules = append([]Rule(nil), c.Rules...)
	if c.ExclusionGroups != nil {
		out.ExclusionGroups = make([][]string, len(c.ExclusionGroups))
		for i, g := range c.ExclusionGroups {
			out.ExclusionGroups[i] = append([]string(nil), g...)
		}
	}
	if c.Solution != nil {
		out.Solution = make(map[string]string, len(c.Solution))
		for k, v := range c.Solution {
			out.Solution[k] = v
		}
	}
	return &out
}

func (a Action) clone() Action {
	a.Eliminates = append([]string(nil), a.Eliminates...)
	a.Assertions = append([]Assertion(nil), a.Assertions...)
	return a
}

// Validate checks if the Case has valid field values.
// Returns an error if any validation fails.
func (c *Case) Validate() error {
	if !isValidUUID(c.ID) {
		return fmt.Errorf("invalid case ID: not a valid UUID")
	}

	if len(c.Categories) == 0 {
		return fmt.Errorf("case must define at least one category")
	}

	candidates := make(map[string]map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if err := cat.Validate(); err != nil {
			return fmt.Errorf("invalid category at index %d: %w", i, err)
		}
		if _, dup := candidates[cat.Name]; dup {
			return fmt.Errorf("duplicate category %q", cat.Name)
		}
		set := make(map[string]bool, len(cat.Candidates))
		for _, v := range cat.Candidates {
			set[v] = true
		}
		candidates[cat.Name] = set
	}

	actionIDs := make(map[string]bool, len(c.Actions))
	for i := range c.Actions {
		a := &c.Actions[i]
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid action at index %d: %w", i, err)
		}
		if actionIDs[a.ID] {
			return fmt.Errorf("duplicate action id %q", a.ID)
		}
		actionIDs[a.ID] = true
		for _, as := range a.Assertions {
			if as.Category != "" {
				if _, ok := candidates[as.Category]; !ok {
					return fmt.Errorf("action %q: assertion references unknown category %q", a.ID, as.Category)
				}
			}
		}
	}

	if c.TotalCost < 0 {
		return fmt.Errorf("total cost must be >= 0, got %d", c.TotalCost)
	}

	for i, r := range c.Rules {
		if err := r.validate(candidates); err != nil {
			return fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
	}

	grouped := make(map[string]bool)
	for i, group := range c.ExclusionGroups {
		for _, name := range group {
			if _, ok := candidates[name]; !ok {
				return fmt.Errorf("exclusion group %d references unknown category %q", i, name)
			}
			if grouped[name] {
				return fmt.Errorf("category %q appears in more than one exclusion group", name)
			}
			grouped[name] = true
		}
	}

	if c.Solution != nil {
		for name, set := range candidates {
			value, ok := c.Solution[name]
			if !ok {
				return fmt.Errorf("solution missing category %q", name)
			}
			if !set[value] {
				return fmt.Errorf("solution value %q is not a candidate of %q", value, name)
			}
		}
		if len(c.Solution) != len(candidates) {
			return fmt.Errorf("solution names categories that do not exist")
		}
	}

	return nil
}

// Validate checks the category name and candidate set.
func (cat *Category) Validate() error {
	if cat.Name == "" {
		return fmt.Errorf("category name cannot be empty")
	}
	if len(cat.Candidates) == 0 {
		return fmt.Errorf("category %q has no candidates", cat.Name)
	}
	seen := make(map[string]bool, len(cat.Candidates))
	for _, v := range cat.Candidates {
		if v == "" {
			return fmt.Errorf("category %q has an empty candidate", cat.Name)
		}
		if seen[v] {
			return fmt.Errorf("category %q has duplicate candidate %q", cat.Name, v)
		}
		seen[v] = true
	}
	return nil
}

// Validate checks if the Action has valid field values.
func (a *Action) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("action id cannot be empty")
	}
	if a.Label == "" {
		return fmt.Errorf("action %q: label cannot be empty", a.ID)
	}
	if a.Cost < 0 {
		return fmt.Errorf("action %q: cost must be >= 0, got %d", a.ID, a.Cost)
	}
	for i, as := range a.Assertions {
		if err := as.Kind.Validate(); err != nil {
			return fmt.Errorf("action %q: assertion %d: %w", a.ID, i, err)
		}
		if as.Value == "" {
			return fmt.Errorf("action %q: assertion %d: value cannot be empty", a.ID, i)
		}
	}
	return nil
}

// Validate checks if the AssertionKind is a valid enum value.
func (k AssertionKind) Validate() error {
	switch k {
	case AssertionEliminate, AssertionConfirm:
		return nil
	default:
		return fmt.Errorf("unknown assertion kind: %q", k)
	}
}

// Validate checks if the RuleKind is a valid enum value.
func (k RuleKind) Validate() error {
	switch k {
	case RuleAllDifferent, RuleForbid, RuleRequire:
		return nil
	default:
		return fmt.Errorf("unknown rule kind: %q", k)
	}
}

func (r Rule) validate(candidates map[string]map[string]bool) error {
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if r.Kind == RuleAllDifferent {
		return nil
	}
	for _, b := range []Binding{r.A, r.B} {
		set, ok := candidates[b.Category]
		if !ok {
			return fmt.Errorf("%s rule references unknown category %q", r.Kind, b.Category)
		}
		if !set[b.Value] {
			return fmt.Errorf("%s rule references unknown value %q in %q", r.Kind, b.Value, b.Category)
		}
	}
	if r.A.Category == r.B.Category {
		return fmt.Errorf("%s rule must relate two different categories", r.Kind)
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
