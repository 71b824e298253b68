package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/sleuth/internal/config"
	"github.com/dyluth/sleuth/internal/logging"
	"github.com/dyluth/sleuth/internal/printer"
)

var (
	version string
	commit  string
	date    string

	verbose bool
	envFile string

	// Populated by the root PersistentPreRunE for every subcommand
	appEnv    *config.Env
	appConfig *config.SleuthConfig
	logger    = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Sleuth - explainable reasoning for deduction puzzles",
	Long: `Sleuth plays deduction puzzles: a set of categories (suspect, weapon, location)
with candidate values, and investigative actions that reveal clues at a cost.

Cases live in Redis. Every deduction is recorded as an audit step, so each
conclusion can be traced back to the clue and the algorithm that produced it.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	PersistentPreRunE: setup,
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	defer func() { _ = logger.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading SLEUTH_* variables")
}

// setup loads the environment, configuration and logger shared by all commands.
func setup(cmd *cobra.Command, args []string) error {
	e, err := config.LoadEnv(envFile)
	if err != nil {
		return printer.Error(
			"invalid environment",
			err.Error(),
			[]string{"Check the SLEUTH_* variables and the .env file"},
		)
	}

	cfg, err := config.Resolve(e)
	if err != nil {
		return printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": e.ConfigPath},
			[]string{"Fix the file, or point SLEUTH_CONFIG at another one"},
		)
	}

	l, err := logging.New(verbose)
	if err != nil {
		return err
	}

	appEnv, appConfig, logger = e, cfg, l
	return nil
}
