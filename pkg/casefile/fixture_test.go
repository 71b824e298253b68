package casefile

import (
	"github.com/google/uuid"
)

// newTestCase returns a small valid three-category case.
func newTestCase() *Case {
	return &Case{
		ID:    uuid.New().String(),
		Title: "Library",
		Categories: []Category{
			{Name: "suspect", Candidates: []string{"Plum", "Scarlet", "Mustard"}},
			{Name: "weapon", Candidates: []string{"Rope", "Knife", "Pipe"}},
			{Name: "location", Candidates: []string{"Hall", "Study", "Cellar"}},
		},
		Actions: []Action{
			{ID: "interview-cook", Label: "Interview the cook", Cost: 2, Eliminates: []string{"Plum"}, Clue: "Plum was not in the house"},
			{ID: "search-study", Label: "Search the study", Cost: 5, Eliminates: []string{"Rope", "Pipe"}, Clue: "A knife is missing from the study"},
			{ID: "check-cellar", Label: "Check the cellar", Cost: 1, Clue: "Nothing happened in the Cellar, it wasn't touched"},
		},
		Evidence: []Evidence{},
		Rules: []Rule{
			{Kind: RuleAllDifferent},
			{Kind: RuleForbid, A: Binding{Category: "suspect", Value: "Mustard"}, B: Binding{Category: "weapon", Value: "Rope"}},
		},
		Solution:    map[string]string{"suspect": "Scarlet", "weapon": "Knife", "location": "Study"},
		CreatedAtMs: 1700000000000,
	}
}
