package reasoning

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/sleuth/pkg/casefile"
)

func TestPropagate_NarrowsThenConfirms(t *testing.T) {
	s := newLetterStore(t)

	steps, err := Propagate(s, evidence("it was not A"), DefaultNegationMarkers)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, s.Domain("suspect"))
	require.Len(t, steps, 1)
	assert.Equal(t, StepElimination, steps[0].Kind)
	assert.Equal(t, "Eliminated A from suspect", steps[0].Message)

	steps, err = Propagate(s, evidence("B did it"), DefaultNegationMarkers)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, StepConfirmation, steps[0].Kind)

	want := map[string][]string{
		"suspect":  {"B"},
		"weapon":   {"X", "Y", "Z"},
		"location": {"P", "Q", "R"},
	}
	if diff := cmp.Diff(want, s.Domains()); diff != "" {
		t.Errorf("domains mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.IsSolved())
	assert.Equal(t, 9, s.PossibleSolutionCount())
}

func TestPropagate_MalformedAssertion(t *testing.T) {
	s := newLetterStore(t)
	before := s.Domains()

	steps, err := Propagate(s, asserting(
		casefile.Assertion{Kind: casefile.AssertionEliminate, Category: "suspect", Value: "A"},
		casefile.Assertion{Kind: "maybe", Category: "suspect", Value: "B"},
	), DefaultNegationMarkers)
	require.ErrorIs(t, err, ErrInvalidEvidence)
	assert.NotErrorIs(t, err, ErrContradiction)
	assert.Contains(t, err.Error(), `unknown assertion kind: "maybe"`)
	assert.Empty(t, steps, "no failure step for malformed input")
	if diff := cmp.Diff(before, s.Domains()); diff != "" {
		t.Errorf("store changed after malformed evidence (-want +got):\n%s", diff)
	}
}

func TestPropagate_ContradictionLeavesStoreUntouched(t *testing.T) {
	t.Run("keyword clue naming every remaining candidate", func(t *testing.T) {
		s := newLetterStore(t)
		_, err := Propagate(s, evidence("it was not A"), DefaultNegationMarkers)
		require.NoError(t, err)
		before := s.Domains()

		steps, err := Propagate(s, evidence("not B, not C"), DefaultNegationMarkers)
		require.ErrorIs(t, err, ErrContradiction)

		var ce *ContradictionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "suspect", ce.Category)
		assert.Equal(t, "C", ce.Value)

		require.Len(t, steps, 1)
		assert.Equal(t, StepFailure, steps[0].Kind)
		assert.Contains(t, steps[0].Details, "domains left unchanged")
		if diff := cmp.Diff(before, s.Domains()); diff != "" {
			t.Errorf("store changed after contradiction (-want +got):\n%s", diff)
		}
	})

	t.Run("structured elimination of a settled value", func(t *testing.T) {
		s := newLetterStore(t)
		_, err := Propagate(s, asserting(
			casefile.Assertion{Kind: casefile.AssertionConfirm, Category: "suspect", Value: "B"},
			casefile.Assertion{Kind: casefile.AssertionEliminate, Category: "weapon", Value: "X"},
		), DefaultNegationMarkers)
		require.NoError(t, err)
		before := s.Domains()

		_, err = Propagate(s, asserting(
			casefile.Assertion{Kind: casefile.AssertionEliminate, Category: "location", Value: "P"},
			casefile.Assertion{Kind: casefile.AssertionEliminate, Category: "suspect", Value: "B"},
		), DefaultNegationMarkers)
		assert.ErrorIs(t, err, ErrContradiction)
		if diff := cmp.Diff(before, s.Domains()); diff != "" {
			t.Errorf("unrelated category changed (-want +got):\n%s", diff)
		}
	})

	t.Run("confirming an eliminated value", func(t *testing.T) {
		s := newLetterStore(t)
		_, err := Propagate(s, evidence("not A"), DefaultNegationMarkers)
		require.NoError(t, err)

		_, err = Propagate(s, asserting(casefile.Assertion{Kind: casefile.AssertionConfirm, Category: "suspect", Value: "A"}), DefaultNegationMarkers)
		assert.ErrorIs(t, err, ErrContradiction)
		assert.Equal(t, []string{"B", "C"}, s.Domain("suspect"))
	})
}

func TestPropagate_StructuredAssertions(t *testing.T) {
	s := newLetterStore(t)

	steps, err := Propagate(s, &casefile.Evidence{
		Action: "Lab report",
		Clue:   "B did it",
		Assertions: []casefile.Assertion{
			{Kind: casefile.AssertionEliminate, Value: "Y"},
			{Kind: casefile.AssertionConfirm, Category: "location", Value: "Q"},
			{Kind: casefile.AssertionEliminate, Category: "motive", Value: "greed"},
		},
	}, DefaultNegationMarkers)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, s.Domain("suspect"), "clue text is ignored when assertions are present")
	assert.Equal(t, []string{"X", "Z"}, s.Domain("weapon"))
	assert.Equal(t, []string{"Q"}, s.Domain("location"))
	require.Len(t, steps, 2)
	assert.Equal(t, "Evidence from 'Lab report': B did it", steps[0].Details)
}

func TestPropagate_ForwardChecking(t *testing.T) {
	seating := []casefile.Category{
		{Name: "first", Candidates: []string{"Ann", "Bob"}},
		{Name: "second", Candidates: []string{"Ann", "Bob"}},
		{Name: "third", Candidates: []string{"Ann", "Bob", "Cy"}},
	}
	confirmAnn := asserting(casefile.Assertion{Kind: casefile.AssertionConfirm, Category: "first", Value: "Ann"})

	t.Run("settled values cascade through the group", func(t *testing.T) {
		s, err := NewDomainStore(seating, nil)
		require.NoError(t, err)

		steps, err := Propagate(s, confirmAnn, DefaultNegationMarkers)
		require.NoError(t, err)

		assert.Equal(t, []string{"Ann"}, s.Domain("first"))
		assert.Equal(t, []string{"Bob"}, s.Domain("second"))
		assert.Equal(t, []string{"Cy"}, s.Domain("third"))
		assert.True(t, s.IsSolved())

		var forward []string
		for _, st := range steps {
			if st.Algorithm == AlgorithmForwardChecking {
				forward = append(forward, st.Message)
			}
		}
		assert.Equal(t, []string{
			"Removed Ann from second",
			"Removed Ann from third",
			"Removed Bob from third",
		}, forward)
	})

	t.Run("separate groups share literals safely", func(t *testing.T) {
		s, err := NewDomainStore(seating, [][]string{{"first"}, {"second"}, {"third"}})
		require.NoError(t, err)

		_, err = Propagate(s, confirmAnn, DefaultNegationMarkers)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ann", "Bob"}, s.Domain("second"))
		assert.Equal(t, []string{"Ann", "Bob", "Cy"}, s.Domain("third"))
	})

	t.Run("removes a settled value from another category", func(t *testing.T) {
		cats := []casefile.Category{
			{Name: "suspect", Candidates: []string{"Plum", "Scarlet"}},
			{Name: "alibi", Candidates: []string{"Plum", "Scarlet", "Green"}},
		}
		s, err := NewDomainStore(cats, nil)
		require.NoError(t, err)

		_, err = Propagate(s, asserting(casefile.Assertion{Kind: casefile.AssertionEliminate, Category: "suspect", Value: "Plum"}), DefaultNegationMarkers)
		require.NoError(t, err)
		assert.Equal(t, []string{"Scarlet"}, s.Domain("suspect"))
		assert.Equal(t, []string{"Plum", "Green"}, s.Domain("alibi"))
	})
}

// Random clue sequences must never grow the solution space or disturb a settled category.
func TestPropagate_MonotonicAndSettledStable(t *testing.T) {
	words := []string{"A", "B", "C", "X", "Y", "Z", "P", "Q", "R", "not", "wasn't", "it", "did"}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		s := newLetterStore(t)
		settled := map[string]string{}

		for i := 0; i < 6; i++ {
			n := 1 + rng.Intn(4)
			parts := make([]string, n)
			for j := range parts {
				parts[j] = words[rng.Intn(len(words))]
			}
			clue := strings.Join(parts, " ")

			before := s.PossibleSolutionCount()
			snapshot := s.Domains()
			_, err := Propagate(s, evidence(clue), DefaultNegationMarkers)
			if err != nil {
				require.ErrorIs(t, err, ErrContradiction)
				require.Equal(t, snapshot, s.Domains(), "clue %q", clue)
				break
			}

			require.LessOrEqual(t, s.PossibleSolutionCount(), before, "clue %q", clue)
			for name, v := range settled {
				require.Equal(t, []string{v}, s.Domain(name), "clue %q", clue)
			}
			for _, name := range s.Categories() {
				require.NotEmpty(t, s.Domain(name))
				if d := s.Domain(name); len(d) == 1 {
					settled[name] = d[0]
				}
			}
		}
	}
}
