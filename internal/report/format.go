// Package report renders case state, reasoning steps and search results for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/sleuth/internal/reasoning"
)

// now is the reference time for relative ages. Tests replace it.
var now = time.Now

// FormatSteps writes audit steps as a table with columns SEQ, KIND, ALGORITHM, AGE and MESSAGE.
// Returns the number of steps formatted.
func FormatSteps(w io.Writer, steps []reasoning.Step, caseID string) int {
	if len(steps) == 0 {
		fmt.Fprintf(w, "No reasoning steps recorded for case '%s'\n", formatID(caseID))
		return 0
	}

	fmt.Fprintf(w, "Reasoning steps for case '%s':\n\n", formatID(caseID))

	fmt.Fprintf(w, "%-5s %-14s %-24s %-8s %s\n",
		"SEQ", "KIND", "ALGORITHM", "AGE", "MESSAGE")
	fmt.Fprintf(w, "%-5s %-14s %-24s %-8s %s\n",
		"-----", "--------------", "------------------------", "--------", "----------------------------------------")

	for _, s := range steps {
		fmt.Fprintf(w, "%-5d %-14s %-24s %-8s %s\n",
			s.Seq,
			s.Kind,
			formatAlgorithm(s.Algorithm),
			formatAge(s.Timestamp),
			formatMessage(s.Message),
		)
	}

	noun := "step"
	if len(steps) != 1 {
		noun = "steps"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(steps), noun)

	return len(steps)
}

// FormatStepsJSONL writes each step as one compact JSON object per line.
func FormatStepsJSONL(w io.Writer, steps []reasoning.Step) error {
	for _, s := range steps {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal step to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatJSON writes any value as pretty-printed JSON followed by a newline.
func FormatJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// FormatStepDetails writes steps as an indented narrative: message then details.
func FormatStepDetails(w io.Writer, steps []reasoning.Step) {
	for _, s := range steps {
		fmt.Fprintf(w, "  [%s] %s\n", s.Algorithm, s.Message)
		if s.Details != "" {
			fmt.Fprintf(w, "      %s\n", s.Details)
		}
	}
}

// FormatEvaluations writes the ranked action scores, best first.
func FormatEvaluations(w io.Writer, evals []reasoning.Evaluation) {
	if len(evals) == 0 {
		fmt.Fprintln(w, "No actions available")
		return
	}

	fmt.Fprintf(w, "%-4s %-20s %5s %8s %8s %8s %8s\n", "RANK", "ACTION", "COST", "G", "H", "IG", "F")
	for i, ev := range evals {
		fmt.Fprintf(w, "%-4d %-20s %5d %8.2f %8.2f %8.2f %8.2f\n",
			i+1, truncate(ev.ActionID, 20), ev.Cost, ev.G, ev.H, ev.InfoGain, ev.F)
	}
}

// FormatPath writes the sequence of actions taken by an automatic solve and its outcome.
func FormatPath(w io.Writer, result *reasoning.SolveResult) {
	for _, p := range result.Path {
		fmt.Fprintf(w, "%d. %s (cost %d)\n", p.Step, p.Action, p.Cost)
		if p.Clue != "" {
			fmt.Fprintf(w, "   Clue: %s\n", p.Clue)
		}
		fmt.Fprintf(w, "   %s\n", p.Reasoning)
	}
	if len(result.Path) > 0 {
		fmt.Fprintln(w)
	}

	switch {
	case result.Solved:
		fmt.Fprintf(w, "Solved in %d %s with total cost %d\n", len(result.Path), plural(len(result.Path), "action", "actions"), result.TotalCost)
	case result.Exhausted:
		fmt.Fprintf(w, "Stopped after %d %s: no actions left (total cost %d)\n", len(result.Path), plural(len(result.Path), "action", "actions"), result.TotalCost)
	default:
		fmt.Fprintf(w, "Not solved after %d %s (total cost %d)\n", len(result.Path), plural(len(result.Path), "action", "actions"), result.TotalCost)
	}
}

// formatID truncates a case ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatAlgorithm shortens the long CSP labels to fit the column.
func formatAlgorithm(name string) string {
	name = strings.TrimPrefix(name, "CSP - ")
	return truncate(name, 24)
}

// formatMessage keeps the first line, at most 60 characters. Empty messages return "-".
func formatMessage(msg string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	if line == "" {
		return "-"
	}
	return truncate(line, 60)
}

// formatAge renders a timestamp relative to now, like "2m ago".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now().Sub(t)
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
