package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/pkg/casefile"
)

// CategoryView is one category's remaining and eliminated candidates.
type CategoryView struct {
	Name       string   `json:"name"`
	Remaining  []string `json:"remaining"`
	Eliminated []string `json:"eliminated"`
}

// Summary is the snapshot shown by `sleuth show`.
type Summary struct {
	CaseID            string              `json:"case_id"`
	Title             string              `json:"title"`
	State             reasoning.State     `json:"state"`
	Contradiction     string              `json:"contradiction,omitempty"`
	Categories        []CategoryView      `json:"categories"`
	PossibleSolutions int                 `json:"possible_solutions"`
	InitialSolutions  int                 `json:"initial_solutions"`
	Confidence        float64             `json:"confidence"`
	TotalCost         int                 `json:"total_cost"`
	Evidence          []casefile.Evidence `json:"evidence"`
	Available         []casefile.Action   `json:"available_actions"`
	Solution          map[string]string   `json:"solution,omitempty"` // deduced, only once solved
}

// Summarize combines the stored case with the engine's deductions.
func Summarize(c *casefile.Case, e *reasoning.Engine) *Summary {
	s := &Summary{
		CaseID:            c.ID,
		Title:             c.Title,
		State:             e.State(),
		PossibleSolutions: e.PossibleSolutionCount(),
		InitialSolutions:  e.InitialSolutionCount(),
		Confidence:        e.Confidence(),
		TotalCost:         e.TotalCost(),
		Evidence:          e.History(),
		Available:         e.AvailableActions(),
	}
	if err := e.Contradiction(); err != nil {
		s.Contradiction = err.Error()
	}

	domains := e.Domains()
	for _, cat := range c.Categories {
		view := CategoryView{Name: cat.Name, Remaining: domains[cat.Name], Eliminated: []string{}}
		remaining := make(map[string]bool, len(view.Remaining))
		for _, v := range view.Remaining {
			remaining[v] = true
		}
		for _, v := range cat.Candidates {
			if !remaining[v] {
				view.Eliminated = append(view.Eliminated, v)
			}
		}
		s.Categories = append(s.Categories, view)
	}

	if solution, err := e.ExtractSolution(); err == nil {
		s.Solution = solution
	}
	return s
}

// FormatSummary writes a human-readable case summary.
func FormatSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Case %s: %s\n", formatID(s.CaseID), s.Title)
	fmt.Fprintf(w, "State: %s\n", s.State)
	if s.Contradiction != "" {
		fmt.Fprintf(w, "Contradiction: %s\n", s.Contradiction)
	}
	fmt.Fprintf(w, "Possible solutions: %d of %d (confidence %.0f%%)\n",
		s.PossibleSolutions, s.InitialSolutions, s.Confidence*100)
	fmt.Fprintf(w, "Total cost: %d\n\n", s.TotalCost)

	FormatDomains(w, s.Categories)

	if len(s.Solution) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Solution:")
		for _, view := range s.Categories {
			fmt.Fprintf(w, "  %s: %s\n", view.Name, s.Solution[view.Name])
		}
	}

	fmt.Fprintln(w)
	if len(s.Evidence) == 0 {
		fmt.Fprintln(w, "No evidence gathered yet")
	} else {
		fmt.Fprintln(w, "Evidence:")
		for i, ev := range s.Evidence {
			fmt.Fprintf(w, "  %d. %s (cost %d): %s\n", i+1, ev.Action, ev.Cost, formatMessage(ev.Clue))
		}
	}

	fmt.Fprintln(w)
	if len(s.Available) == 0 {
		fmt.Fprintln(w, "No actions available")
	} else {
		fmt.Fprintln(w, "Available actions:")
		for _, a := range s.Available {
			fmt.Fprintf(w, "  %-20s cost %-3d %s\n", a.ID, a.Cost, a.Label)
		}
	}
}

// FormatDomains writes one line per category: remaining candidates then eliminated ones.
func FormatDomains(w io.Writer, views []CategoryView) {
	width := 0
	for _, v := range views {
		if len(v.Name) > width {
			width = len(v.Name)
		}
	}
	for _, v := range views {
		line := fmt.Sprintf("  %-*s  %s", width, v.Name, strings.Join(v.Remaining, ", "))
		if len(v.Eliminated) > 0 {
			line += fmt.Sprintf("  (eliminated: %s)", strings.Join(v.Eliminated, ", "))
		}
		fmt.Fprintln(w, line)
	}
}
