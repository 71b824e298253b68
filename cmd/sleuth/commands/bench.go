package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/report"
	"github.com/dyluth/sleuth/internal/scenario"
	"github.com/dyluth/sleuth/pkg/casefile"
)

var (
	benchConcurrency  int
	benchOutputFormat string
)

var benchCmd = &cobra.Command{
	Use:   "bench DIR",
	Short: "Auto-solve every case definition in a directory",
	Long: `Auto-solve every *.yml / *.yaml case definition in DIR, concurrently and
in memory (Redis is not used), and report how each one went.

Output Formats:
  default - Table plus cost statistics
  json    - One JSON document with every result

Examples:
  sleuth bench cases/
  sleuth bench cases/ --concurrency 8 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", 4, "Cases solved in parallel")
	benchCmd.Flags().StringVarP(&benchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(benchCmd)
}

// benchResult is the outcome of solving one case definition.
type benchResult struct {
	Name      string            `json:"name"`
	Solved    bool              `json:"solved"`
	Correct   *bool             `json:"correct,omitempty"` // nil when the definition has no solution
	Actions   int               `json:"actions"`
	TotalCost int               `json:"total_cost"`
	Solution  map[string]string `json:"solution,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// benchSummary aggregates costs over the solved cases.
type benchSummary struct {
	Cases    int           `json:"cases"`
	Solved   int           `json:"solved"`
	MeanCost float64       `json:"mean_cost"`
	MaxCost  float64       `json:"max_cost"`
	Results  []benchResult `json:"results"`
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateOutput(benchOutputFormat, "default", "json"); err != nil {
		return err
	}
	if benchConcurrency < 1 {
		return printer.Error("invalid concurrency", fmt.Sprintf("--concurrency must be at least 1, got %d", benchConcurrency), nil)
	}

	defs, names, err := scenario.LoadDir(args[0])
	if err != nil {
		return printer.ErrorWithContext(
			"failed to load case definitions",
			err.Error(),
			map[string]string{"Directory": args[0]},
			[]string{"Check every *.yml file in the directory parses with 'sleuth new -f'"},
		)
	}
	if len(names) == 0 {
		printer.Warning("No case definitions found in %s\n", args[0])
		return nil
	}

	results, err := solveAll(ctx, defs, names, benchConcurrency, appConfig.MaxSteps(), engineOptions())
	if err != nil {
		return err
	}

	summary := summarizeBench(results)
	if benchOutputFormat == "json" {
		return report.FormatJSON(printer.Out, summary)
	}

	printer.Printf("%-20s %-7s %-8s %7s %5s\n", "CASE", "SOLVED", "CORRECT", "ACTIONS", "COST")
	for _, r := range summary.Results {
		correct := "-"
		if r.Correct != nil {
			correct = fmt.Sprintf("%t", *r.Correct)
		}
		printer.Printf("%-20s %-7t %-8s %7d %5d\n", r.Name, r.Solved, correct, r.Actions, r.TotalCost)
		if r.Error != "" {
			printer.Warning("%s: %s\n", r.Name, r.Error)
		}
	}
	printer.Printf("\nSolved %d/%d, mean cost %.2f, max cost %.0f\n", summary.Solved, summary.Cases, summary.MeanCost, summary.MaxCost)
	return nil
}

// solveAll auto-solves each definition against its own in-memory store.
// A case that fails is reported in its result; only cancellation stops the run.
func solveAll(ctx context.Context, defs map[string]*scenario.Definition, names []string, concurrency, maxSteps int, opts []reasoning.Option) ([]benchResult, error) {
	results := make([]benchResult, len(names))
	store := casefile.NewMemoryStore()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = solveOne(gctx, store, name, defs[name], maxSteps, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func solveOne(ctx context.Context, store *casefile.MemoryStore, name string, def *scenario.Definition, maxSteps int, opts []reasoning.Option) benchResult {
	result := benchResult{Name: name}

	c, err := def.NewCase(uuid.NewString(), time.Now())
	if err == nil {
		err = store.CreateCase(ctx, c)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	engine, err := reasoning.NewEngine(c, opts...)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	solved, err := engine.AutoSolve(ctx, store, maxSteps)
	result.Solved = solved.Solved
	result.Actions = len(solved.Path)
	result.TotalCost = solved.TotalCost
	result.Solution = solved.Solution
	if err != nil {
		result.Error = err.Error()
	}

	if solved.Solved && def.Solution != nil {
		if accusation, err := c.Accuse(solved.Solution); err == nil {
			result.Correct = &accusation.Correct
		}
	}

	logger.Debug("bench case finished",
		zap.String("case", name),
		zap.Bool("solved", result.Solved),
		zap.Int("cost", result.TotalCost))
	return result
}

func summarizeBench(results []benchResult) *benchSummary {
	summary := &benchSummary{Cases: len(results), Results: results}

	costs := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Solved {
			summary.Solved++
			costs = append(costs, float64(r.TotalCost))
		}
	}
	if len(costs) > 0 {
		summary.MeanCost, _ = stats.Mean(costs)
		summary.MaxCost, _ = stats.Max(costs)
	}
	return summary
}
