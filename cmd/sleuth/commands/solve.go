package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/report"
)

var (
	solveMaxSteps     int
	solveOutputFormat string
)

var solveCmd = &cobra.Command{
	Use:   "solve CASE_ID",
	Short: "Solve a case automatically",
	Long: `Repeatedly take the best-scoring action until the case is solved, no
action is left, or the step limit is reached.

The step limit defaults to engine.max_steps in sleuth.yml (20 if unset).

Output Formats:
  default - The path taken and the outcome
  json    - The full result, including every audit step per action

Examples:
  sleuth solve 0f8fad
  sleuth solve 0f8fad --max-steps 3 -o json | jq '.path[].action_id'`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().IntVar(&solveMaxSteps, "max-steps", 0, "Maximum actions to take (0 = configured default)")
	solveCmd.Flags().StringVarP(&solveOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateOutput(solveOutputFormat, "default", "json"); err != nil {
		return err
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	_, engine, err := openCase(ctx, client, args[0])
	if err != nil {
		return err
	}
	if engine.State() == reasoning.StateContradicted {
		return contradictionError(engine.Contradiction())
	}

	maxSteps := solveMaxSteps
	if maxSteps <= 0 {
		maxSteps = appConfig.MaxSteps()
	}

	result, err := engine.AutoSolve(ctx, client, maxSteps)
	if err != nil && !errors.Is(err, reasoning.ErrContradiction) {
		return fmt.Errorf("auto-solve failed: %w", err)
	}
	if solveOutputFormat == "json" {
		if ferr := report.FormatJSON(printer.Out, result); ferr != nil {
			return ferr
		}
	} else {
		report.FormatPath(printer.Out, result)
	}

	if err != nil {
		return contradictionError(err)
	}
	return nil
}
