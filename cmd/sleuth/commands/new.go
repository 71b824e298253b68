package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/scenario"
)

var newFile string

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a case from a YAML definition",
	Long: `Create a case from a YAML case definition and store it in Redis.

The definition lists the categories with their candidates, the investigative
actions (cost, predicted eliminations and the clue each one reveals), optional
rules and exclusion groups, and the solution used by 'sleuth accuse'.

Examples:
  # Create a case and remember its ID
  sleuth new -f cases/manor.yml`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVarP(&newFile, "file", "f", "", "Case definition file (required)")
	_ = newCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	def, err := scenario.Load(newFile)
	if err != nil {
		return printer.ErrorWithContext(
			"invalid case definition",
			err.Error(),
			map[string]string{"File": newFile},
			[]string{"See cases/manor.yml for a complete example"},
		)
	}

	c, err := def.NewCase(uuid.NewString(), time.Now())
	if err != nil {
		return printer.ErrorWithContext(
			"invalid case definition",
			err.Error(),
			map[string]string{"File": newFile},
			[]string{"See cases/manor.yml for a complete example"},
		)
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.CreateCase(ctx, c); err != nil {
		return fmt.Errorf("failed to store case: %w", err)
	}

	logger.Info("case created")
	printer.Success("Case created: %s\n", c.ID)
	printer.Info("  Title:      %s\n", c.Title)
	printer.Info("  Categories: %d\n", len(c.Categories))
	printer.Info("  Actions:    %d\n", len(c.Actions))
	printer.Info("\nNext: sleuth show %s\n", c.ID[:8])
	return nil
}
