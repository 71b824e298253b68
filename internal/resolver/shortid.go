package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// CaseIndex is the part of a case store the resolver needs.
type CaseIndex interface {
	CaseExists(ctx context.Context, caseID string) (bool, error)
	ScanCases(ctx context.Context, prefix string) ([]string, error)
}

// ResolveCaseID resolves a short ID prefix to a full case UUID.
//
// A full UUID (36 chars, 4 hyphens) is only checked for existence. Anything shorter
// must be at least MinShortIDLength characters and match exactly one stored case.
func ResolveCaseID(ctx context.Context, index CaseIndex, shortID string) (string, error) {
	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		exists, err := index.CaseExists(ctx, shortID)
		if err != nil {
			return "", fmt.Errorf("failed to verify case existence: %w", err)
		}
		if !exists {
			return "", &NotFoundError{ShortID: shortID}
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := index.ScanCases(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for case: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no case matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no cases found matching '%s'", e.ShortID)
}

// Unwrap lets callers test for casefile.ErrCaseNotFound.
func (e *NotFoundError) Unwrap() error {
	return casefile.ErrCaseNotFound
}

// AmbiguousError indicates multiple cases matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d cases", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous short IDs.
// Lists all matching UUIDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous short ID '%s' matches %d cases:\n", err.ShortID, len(err.Matches))

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}
	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(&b, "  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the case.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
