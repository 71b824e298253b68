package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/resolver"
	"github.com/dyluth/sleuth/pkg/casefile"
)

// connect opens the case store and verifies Redis connectivity.
func connect(ctx context.Context) (*casefile.Client, error) {
	redisOpts, err := redis.ParseURL(appEnv.RedisURL)
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			fmt.Sprintf("Could not parse '%s': %v", appEnv.RedisURL, err),
			[]string{"Use the form redis://host:6379/0 in SLEUTH_REDIS_URL"},
		)
	}

	client, err := casefile.NewClient(redisOpts, appConfig.Store.Namespace, casefile.WithCaseTTL(appConfig.Store.CaseTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create case client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", appEnv.RedisURL),
			map[string]string{"Namespace": appConfig.Store.Namespace},
			[]string{
				"Start a local Redis:\n  docker run -d -p 6379:6379 redis:7-alpine",
				"Point sleuth at another server:\n  export SLEUTH_REDIS_URL=redis://host:6379/0",
			},
		)
	}
	return client, nil
}

// resolveCase expands a short case id and reports lookup failures.
func resolveCase(ctx context.Context, client *casefile.Client, shortID string) (string, error) {
	caseID, err := resolver.ResolveCaseID(ctx, client, shortID)
	if err == nil {
		return caseID, nil
	}

	if resolver.IsNotFoundError(err) {
		return "", printer.Error(
			fmt.Sprintf("case with ID '%s' not found", shortID),
			"The case does not exist or has expired.",
			[]string{"Create a case:\n  sleuth new -f case.yml"},
		)
	}

	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", printer.Error(
			fmt.Sprintf("ambiguous case ID '%s'", shortID),
			resolver.FormatAmbiguousError(ambiguous),
			[]string{"Use more characters of the case ID"},
		)
	}

	return "", fmt.Errorf("failed to resolve case ID: %w", err)
}

// openCase resolves the id, loads the case and rebuilds its engine from the evidence history.
// A contradictory history still yields an engine, in the contradicted state.
func openCase(ctx context.Context, client *casefile.Client, shortID string) (*casefile.Case, *reasoning.Engine, error) {
	caseID, err := resolveCase(ctx, client, shortID)
	if err != nil {
		return nil, nil, err
	}

	c, err := client.GetCase(ctx, caseID)
	if err != nil {
		if casefile.IsNotFound(err) {
			return nil, nil, printer.Error(
				fmt.Sprintf("case '%s' has expired", caseID),
				"The case was removed while it was being loaded.",
				[]string{"Create a new case:\n  sleuth new -f case.yml"},
			)
		}
		return nil, nil, fmt.Errorf("failed to load case: %w", err)
	}

	engine, err := reasoning.Replay(c, engineOptions()...)
	if err != nil && !errors.Is(err, reasoning.ErrContradiction) {
		return nil, nil, fmt.Errorf("failed to rebuild engine: %w", err)
	}
	return c, engine, nil
}

func engineOptions() []reasoning.Option {
	return append(appConfig.EngineOptions(), reasoning.WithLogger(logger))
}

// contradictionError prints a contradiction with its category and value.
func contradictionError(err error) error {
	details := map[string]string{}
	var ce *reasoning.ContradictionError
	if errors.As(err, &ce) {
		details["Category"] = ce.Category
		if ce.Value != "" {
			details["Value"] = ce.Value
		}
		details["Reason"] = ce.Reason
	}
	return printer.ErrorWithContext(
		"contradiction detected",
		"The evidence is inconsistent with the remaining possibilities. Domains were left unchanged.",
		details,
		[]string{"Inspect the audit trail:\n  sleuth log <case>", "Start over:\n  sleuth reset <case>"},
	)
}

// validateOutput checks an --output value against the formats a command supports.
func validateOutput(format string, valid ...string) error {
	for _, v := range valid {
		if format == v {
			return nil
		}
	}
	return printer.Error(
		"invalid output format",
		fmt.Sprintf("Unknown format: %s", format),
		[]string{fmt.Sprintf("Valid formats: %s", strings.Join(valid, ", "))},
	)
}
