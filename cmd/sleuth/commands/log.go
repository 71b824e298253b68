package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/report"
)

var (
	logOutputFormat string
	logLast         int
	logKind         string
	logAlgorithm    string
	logSince        string
	logUntil        string
)

var logCmd = &cobra.Command{
	Use:   "log CASE_ID",
	Short: "Show the reasoning audit trail of a case",
	Long: `Show every reasoning step the engine recorded for a case, rebuilt by
replaying its evidence.

Output Formats:
  default - Table with sequence, kind, algorithm, age and message
  jsonl   - Line-delimited JSON, one step per line

Filters:
  --last       - Only the newest N matching steps
  --kind       - Step kind (glob pattern: "elim*", "confirmation")
  --algorithm  - Exact algorithm label ("AC-3", "A* Search")
  --since      - Steps recorded after this time (duration or RFC3339)
  --until      - Steps recorded before this time

Examples:
  sleuth log 0f8fad --last 5
  sleuth log 0f8fad --kind "elim*" -o jsonl | jq .message`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVarP(&logOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show only the newest N steps")
	logCmd.Flags().StringVar(&logKind, "kind", "", "Filter by step kind (glob pattern)")
	logCmd.Flags().StringVar(&logAlgorithm, "algorithm", "", "Filter by algorithm (exact match)")
	logCmd.Flags().StringVar(&logSince, "since", "", "Show steps after time (duration or RFC3339)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "Show steps before time (duration or RFC3339)")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateOutput(logOutputFormat, "default", "jsonl"); err != nil {
		return err
	}

	sinceMs, untilMs, err := report.ParseRange(logSince, logUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration like '1h30m' or an RFC3339 time like '2025-10-29T13:00:00Z'"},
		)
	}

	criteria := &report.Criteria{
		SinceTimestampMs: sinceMs,
		UntilTimestampMs: untilMs,
		KindGlob:         logKind,
		Algorithm:        logAlgorithm,
		Last:             logLast,
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

	steps := criteria.Apply(engine.AuditLog())
	if logOutputFormat == "jsonl" {
		return report.FormatStepsJSONL(printer.Out, steps)
	}
	report.FormatSteps(printer.Out, steps, engine.CaseID())
	return nil
}
