package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/pkg/casefile"
)

var accuseGuesses []string

var accuseCmd = &cobra.Command{
	Use:   "accuse CASE_ID --guess CATEGORY=VALUE ...",
	Short: "Compare a guess with the case solution",
	Long: `Compare a full guess, one value per category, with the solution recorded
in the case definition. The case itself is not changed.

Examples:
  sleuth accuse 0f8fad --guess suspect=Scarlet --guess weapon=Knife --guess location=Study`,
	Args: cobra.ExactArgs(1),
	RunE: runAccuse,
}

func init() {
	accuseCmd.Flags().StringArrayVarP(&accuseGuesses, "guess", "g", nil, "CATEGORY=VALUE, repeated once per category")
	rootCmd.AddCommand(accuseCmd)
}

func runAccuse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	guess, err := parseGuess(accuseGuesses)
	if err != nil {
		return printer.Error(
			"invalid guess",
			err.Error(),
			[]string{"Pass one --guess per category:\n  --guess suspect=Scarlet --guess weapon=Knife"},
		)
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	caseID, err := resolveCase(ctx, client, args[0])
	if err != nil {
		return err
	}
	c, err := client.GetCase(ctx, caseID)
	if err != nil {
		return fmt.Errorf("failed to load case: %w", err)
	}

	result, err := c.Accuse(guess)
	if errors.Is(err, casefile.ErrNoSolution) {
		return printer.Error(
			"case has no solution",
			"The case definition did not record a solution to compare against.",
			[]string{"Add a 'solution' section to the case definition"},
		)
	}
	if err != nil {
		return printer.Error("invalid guess", err.Error(), nil)
	}

	if result.Correct {
		printer.Success("Correct! Case closed with total cost %d\n", c.TotalCost)
		return nil
	}

	printer.Warning("Wrong accusation\n")
	for _, name := range result.Wrong {
		printer.Info("  %s: guessed %s\n", name, guess[name])
	}
	return nil
}

// parseGuess turns CATEGORY=VALUE pairs into a guess map.
func parseGuess(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no guess given")
	}
	guess := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("'%s' is not CATEGORY=VALUE", pair)
		}
		if _, dup := guess[name]; dup {
			return nil, fmt.Errorf("category '%s' guessed twice", name)
		}
		guess[name] = value
	}
	return guess, nil
}
