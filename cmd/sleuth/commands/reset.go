package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
)

var resetCmd = &cobra.Command{
	Use:   "reset CASE_ID",
	Short: "Delete a case and its evidence",
	Long: `Delete a case, its remaining actions and its evidence history from Redis.
Create it again with 'sleuth new' to start over.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	caseID, err := resolveCase(ctx, client, args[0])
	if err != nil {
		return err
	}

	deleted, err := client.DeleteCase(ctx, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	if !deleted {
		printer.Warning("Case %s was already gone\n", caseID)
		return nil
	}
	printer.Success("Case %s deleted\n", caseID)
	return nil
}
