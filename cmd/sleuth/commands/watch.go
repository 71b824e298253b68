package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/session"
	"github.com/dyluth/sleuth/internal/watch"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow evidence as it is gathered",
	Long: `Subscribe to evidence events in the current namespace and keep a live
engine per case. Each action taken by anyone (sleuth take, sleuth step,
sleuth solve) is propagated and the new confidence is printed.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  sleuth watch
  sleuth watch --output=json > updates.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateOutput(watchOutputFormat, "default", "json"); err != nil {
		return err
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.SubscribeEvidenceEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	registry := session.NewRegistry(
		session.WithTTL(appConfig.Store.CaseTTL),
		session.WithEngineOptions(appConfig.EngineOptions()...),
		session.WithLogger(logger),
	)
	defer registry.Close()

	if watchOutputFormat == "default" {
		printer.Info("Watching evidence in namespace '%s' (Ctrl+C to stop)\n", client.Namespace())
	}

	w := watch.New(client, registry, logger)
	return w.Run(ctx, sub, watch.Printer(printer.Out, watch.OutputFormat(watchOutputFormat)))
}
