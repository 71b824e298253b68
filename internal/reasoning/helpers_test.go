package reasoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// letterCategories is the three-by-three puzzle with single-letter candidates.
func letterCategories() []casefile.Category {
	return []casefile.Category{
		{Name: "suspect", Candidates: []string{"A", "B", "C"}},
		{Name: "weapon", Candidates: []string{"X", "Y", "Z"}},
		{Name: "location", Candidates: []string{"P", "Q", "R"}},
	}
}

func newLetterStore(t *testing.T) *DomainStore {
	t.Helper()
	s, err := NewDomainStore(letterCategories(), nil)
	require.NoError(t, err)
	return s
}

// mansionCase is a solvable case: Scarlet with the knife in the study.
func mansionCase() *casefile.Case {
	return &casefile.Case{
		ID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		Title: "Mansion",
		Categories: []casefile.Category{
			{Name: "suspect", Candidates: []string{"Plum", "Scarlet", "Mustard"}},
			{Name: "weapon", Candidates: []string{"Rope", "Knife", "Pipe"}},
			{Name: "location", Candidates: []string{"Hall", "Study", "Cellar"}},
		},
		Actions: []casefile.Action{
			{ID: "interview-cook", Label: "Interview the cook", Cost: 2, Eliminates: []string{"Plum"}, Clue: "Plum was not in the house"},
			{ID: "search-study", Label: "Search the study", Cost: 5, Eliminates: []string{"Knife", "Study"}, Clue: "A knife is missing from the study"},
			{ID: "check-cellar", Label: "Check the cellar", Cost: 1, Eliminates: []string{"Cellar"}, Clue: "Nothing happened in the Cellar, it wasn't touched"},
			{ID: "ask-butler", Label: "Ask the butler", Cost: 3, Eliminates: []string{"Mustard"}, Clue: "Colonel Mustard didn't leave the library"},
		},
		Solution: map[string]string{"suspect": "Scarlet", "weapon": "Knife", "location": "Study"},
	}
}

func evidence(clue string) *casefile.Evidence {
	return &casefile.Evidence{ActionID: "manual", Action: "Manual note", Clue: clue}
}

func asserting(as ...casefile.Assertion) *casefile.Evidence {
	return &casefile.Evidence{ActionID: "structured", Action: "Structured note", Assertions: as}
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}
