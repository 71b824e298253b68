package reasoning

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// Weights tune the action scorer.
type Weights struct {
	Solutions        float64 `yaml:"solutions"`
	AvgDomain        float64 `yaml:"avg_domain"`
	Unresolved       float64 `yaml:"unresolved"`
	InfoGain         float64 `yaml:"info_gain"`
	EliminationYield float64 `yaml:"elimination_yield"`
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Solutions:        2,
		AvgDomain:        5,
		Unresolved:       10,
		InfoGain:         20,
		EliminationYield: 0.5,
	}
}

// Evaluation is the score of one candidate action.
type Evaluation struct {
	ActionID string  `json:"action_id"`
	Action   string  `json:"action"`
	Cost     int     `json:"cost"`
	G        float64 `json:"g_cost"`
	H        float64 `json:"h_cost"`
	InfoGain float64 `json:"info_gain"`
	F        float64 `json:"f_cost"`
}

// Selection is the scorer's choice plus the full ranking.
type Selection struct {
	Action      casefile.Action
	Explanation string
	Evaluations []Evaluation // ascending by F
}

// Scorer ranks actions by f = g + h(simulated) - InfoGain*ig.
type Scorer struct {
	Weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{Weights: w}
}

// Heuristic estimates the remaining uncertainty of a domain state.
func (sc *Scorer) Heuristic(store *DomainStore) float64 {
	sizes := make([]float64, len(store.categories))
	for i, name := range store.categories {
		sizes[i] = float64(len(store.domains[name]))
	}
	mean, err := stats.Mean(sizes)
	if err != nil {
		mean = 0
	}
	return sc.Weights.Solutions*float64(store.PossibleSolutionCount()) +
		sc.Weights.AvgDomain*mean +
		sc.Weights.Unresolved*float64(store.Unresolved())
}

// InformationGain estimates how much an action narrows the case per unit of cost.
func (sc *Scorer) InformationGain(a casefile.Action) float64 {
	expected := sc.Weights.EliminationYield * float64(len(a.Eliminates))
	return expected / float64(a.Cost+1)
}

// Evaluate scores one action without touching the store.
func (sc *Scorer) Evaluate(store *DomainStore, costSoFar int, a casefile.Action) Evaluation {
	g := float64(costSoFar + a.Cost)
	h := sc.Heuristic(simulate(store, a))
	ig := sc.InformationGain(a)
	return Evaluation{
		ActionID: a.ID,
		Action:   a.Label,
		Cost:     a.Cost,
		G:        g,
		H:        h,
		InfoGain: ig,
		F:        g + h - sc.Weights.InfoGain*ig,
	}
}

// Select picks the action with the lowest f. Ties go to the earliest action.
// The returned step summarizes the search for the audit log.
func (sc *Scorer) Select(store *DomainStore, costSoFar int, actions []casefile.Action) (*Selection, Step, error) {
	if len(actions) == 0 {
		return nil, Step{}, ErrNoActionsAvailable
	}

	evaluations := make([]Evaluation, len(actions))
	best := 0
	for i, a := range actions {
		evaluations[i] = sc.Evaluate(store, costSoFar, a)
		if evaluations[i].F < evaluations[best].F {
			best = i
		}
	}

	winner := actions[best]
	explanation := fmt.Sprintf("Selected '%s' using A* search. F-score: %.2f (Cost: %d, Heuristic: %.2f)",
		winner.Label, evaluations[best].F, winner.Cost, sc.Heuristic(store))

	sort.SliceStable(evaluations, func(i, j int) bool {
		return evaluations[i].F < evaluations[j].F
	})

	step := Step{
		Kind:      StepSearch,
		Algorithm: AlgorithmSearch,
		Message:   explanation,
		Details:   fmt.Sprintf("Evaluated %d possible actions", len(actions)),
	}
	return &Selection{
		Action:      cloneAction(winner),
		Explanation: explanation,
		Evaluations: evaluations,
	}, step, nil
}

// simulate returns a copy of the store with the action's predicted eliminations applied.
// A prediction never empties a domain.
func simulate(store *DomainStore, a casefile.Action) *DomainStore {
	work := store.clone()
	for _, v := range a.Eliminates {
		for _, name := range work.categories {
			if work.Size(name) > 1 {
				work.remove(name, v)
			}
		}
	}
	return work
}

func cloneAction(a casefile.Action) casefile.Action {
	a.Eliminates = append([]string(nil), a.Eliminates...)
	a.Assertions = append([]casefile.Assertion(nil), a.Assertions...)
	return a
}
