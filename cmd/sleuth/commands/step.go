package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/report"
)

// recentStepCount is how many audit steps `sleuth step` prints after a move.
const recentStepCount = 5

var stepCmd = &cobra.Command{
	Use:   "step CASE_ID",
	Short: "Let the engine take the next best action",
	Long: `Rank every available action with A* scoring, take the best one and
propagate its clue. Prints the ranking, the reasoning, the next best action
and the most recent audit steps.

Examples:
  sleuth step 0f8fad`,
	Args: cobra.ExactArgs(1),
	RunE: runStep,
}

func init() {
	rootCmd.AddCommand(stepCmd)
}

func runStep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	_, engine, err := openCase(ctx, client, args[0])
	if err != nil {
		return err
	}

	switch engine.State() {
	case reasoning.StateSolved:
		printer.Success("Case already solved\n")
		printOutcome(engine)
		return nil
	case reasoning.StateContradicted:
		return contradictionError(engine.Contradiction())
	}

	sel, err := engine.SelectNextAction()
	if errors.Is(err, reasoning.ErrNoActionsAvailable) {
		printer.Warning("No actions left to take\n")
		printOutcome(engine)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to select action: %w", err)
	}

	report.FormatEvaluations(printer.Out, sel.Evaluations)
	printer.Println()
	printer.Step("%s\n", sel.Explanation)

	ev, steps, err := engine.Investigate(ctx, client, sel.Action.ID)
	if ev == nil && err != nil {
		if errors.Is(err, reasoning.ErrContradiction) {
			return contradictionError(err)
		}
		return fmt.Errorf("failed to take action: %w", err)
	}

	printer.Info("Clue: %s\n\n", ev.Clue)
	report.FormatStepDetails(printer.Out, steps)
	printer.Println()
	if err != nil {
		return contradictionError(err)
	}

	printOutcome(engine)

	if !engine.IsSolved() {
		next, err := engine.SelectNextAction()
		switch {
		case err == nil:
			printer.Info("Next best action: %s (%s)\n", next.Action.ID, next.Action.Label)
		case errors.Is(err, reasoning.ErrNoActionsAvailable):
			printer.Warning("No actions left to take\n")
		default:
			return fmt.Errorf("failed to select next action: %w", err)
		}
	}

	printer.Println()
	report.FormatSteps(printer.Out, engine.RecentSteps(recentStepCount), engine.CaseID())
	return nil
}
