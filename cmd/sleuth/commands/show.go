package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/report"
)

var showOutputFormat string

var showCmd = &cobra.Command{
	Use:   "show CASE_ID",
	Short: "Show what is known about a case",
	Long: `Show the remaining candidates per category, the confidence, the cost so far,
the evidence gathered and the actions still available.

Short IDs are accepted (e.g., "0f8fad" instead of the full UUID).

Output Formats:
  default - Human-readable summary
  json    - Pretty-printed JSON`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateOutput(showOutputFormat, "default", "json"); err != nil {
		return err
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	c, engine, err := openCase(ctx, client, args[0])
	if err != nil {
		return err
	}

	summary := report.Summarize(c, engine)
	if showOutputFormat == "json" {
		return report.FormatJSON(printer.Out, summary)
	}
	report.FormatSummary(printer.Out, summary)
	return nil
}
