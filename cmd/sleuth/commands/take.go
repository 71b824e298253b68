package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/report"
)

var takeCmd = &cobra.Command{
	Use:   "take CASE_ID ACTION_ID",
	Short: "Take an investigative action yourself",
	Long: `Execute one of the case's available actions, pay its cost, and let the
engine propagate the clue it reveals.

Examples:
  sleuth take 0f8fad search-study`,
	Args: cobra.ExactArgs(2),
	RunE: runTake,
}

func init() {
	rootCmd.AddCommand(takeCmd)
}

func runTake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	c, engine, err := openCase(ctx, client, args[0])
	if err != nil {
		return err
	}

	ev, steps, err := engine.Investigate(ctx, client, args[1])
	switch {
	case errors.Is(err, reasoning.ErrInvalidAction):
		available := make([]string, 0, len(engine.AvailableActions()))
		for _, a := range engine.AvailableActions() {
			available = append(available, a.ID)
		}
		suggestion := "No actions are left for this case"
		if len(available) > 0 {
			suggestion = fmt.Sprintf("Available actions: %s", strings.Join(available, ", "))
		}
		return printer.Error(
			fmt.Sprintf("action '%s' is not available", args[1]),
			"The action does not exist or has already been taken.",
			[]string{suggestion},
		)
	case ev == nil && err != nil:
		if errors.Is(err, reasoning.ErrContradiction) {
			return contradictionError(err)
		}
		return fmt.Errorf("failed to take action: %w", err)
	}

	printer.Step("%s (cost %d)\n", ev.Action, ev.Cost)
	printer.Info("Clue: %s\n\n", ev.Clue)
	report.FormatStepDetails(printer.Out, steps)
	printer.Println()

	if err != nil {
		return contradictionError(err)
	}

	printOutcome(engine)
	logger.Debug("action taken", zap.String("case_id", c.ID), zap.String("action_id", ev.ActionID))
	return nil
}

// printOutcome reports the solution, or the remaining count and confidence.
func printOutcome(engine *reasoning.Engine) {
	if solution, err := engine.ExtractSolution(); err == nil {
		printer.Success("Case solved with total cost %d\n", engine.TotalCost())
		for _, name := range engine.Store().Categories() {
			printer.Info("  %s: %s\n", name, solution[name])
		}
		return
	}
	printer.Info("%d possible solutions remain (confidence %.0f%%, total cost %d)\n",
		engine.PossibleSolutionCount(), engine.Confidence()*100, engine.TotalCost())
}
