// Package watch follows evidence events and keeps live engines in step with them.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/session"
	"github.com/dyluth/sleuth/pkg/casefile"
)

// OutputFormat specifies how updates are rendered.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable with emojis
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// Update is the effect of one evidence event on a case's engine.
type Update struct {
	CaseID            string            `json:"case_id"`
	ActionID          string            `json:"action_id"`
	Action            string            `json:"action"`
	Clue              string            `json:"clue"`
	State             reasoning.State   `json:"state"`
	PossibleSolutions int               `json:"possible_solutions"`
	Confidence        float64           `json:"confidence"`
	Steps             []reasoning.Step  `json:"steps,omitempty"`
	Solution          map[string]string `json:"solution,omitempty"`
	Contradiction     string            `json:"contradiction,omitempty"`
	Replayed          bool              `json:"replayed,omitempty"` // already part of the engine's history
	ReceivedAtMs      int64             `json:"received_at_ms"`
}

// Handler consumes updates. Returning an error stops Run.
type Handler func(*Update) error

// Watcher applies evidence events to engines held in a session registry.
type Watcher struct {
	provider reasoning.CaseProvider
	registry *session.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a watcher. provider is used to load cases on their first event.
func New(provider reasoning.CaseProvider, registry *session.Registry, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{provider: provider, registry: registry, logger: logger, now: time.Now}
}

// Apply records one event's evidence with the case's engine.
// Evidence already in the engine's history (for instance because loading the case
// replayed it) is not applied twice. A contradiction is reported in the update, not as an error.
func (w *Watcher) Apply(ctx context.Context, event *casefile.EvidenceEvent) (*Update, error) {
	ev := event.Evidence
	update := &Update{
		CaseID:       event.CaseID,
		ActionID:     ev.ActionID,
		Action:       ev.Action,
		Clue:         ev.Clue,
		ReceivedAtMs: w.now().UnixMilli(),
	}

	err := w.registry.Do(ctx, w.provider, event.CaseID, func(e *reasoning.Engine) error {
		if recorded(e, ev.ActionID) {
			update.Replayed = true
		} else {
			steps, err := e.RecordEvidence(&ev)
			update.Steps = steps
			if err != nil && !errors.Is(err, reasoning.ErrContradiction) {
				return err
			}
		}

		update.State = e.State()
		update.PossibleSolutions = e.PossibleSolutionCount()
		update.Confidence = e.Confidence()
		if c := e.Contradiction(); c != nil {
			update.Contradiction = c.Error()
		}
		if solution, err := e.ExtractSolution(); err == nil {
			update.Solution = solution
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// Run consumes the subscription until it closes, ctx is cancelled or handle fails.
// Events for cases that cannot be loaded are logged and skipped.
func (w *Watcher) Run(ctx context.Context, sub *casefile.Subscription, handle Handler) error {
	events := sub.Events()
	errs := sub.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			update, err := w.Apply(ctx, event)
			if err != nil {
				if errors.Is(err, session.ErrClosed) {
					return err
				}
				w.logger.Warn("failed to apply evidence",
					zap.String("case_id", event.CaseID),
					zap.String("action_id", event.Evidence.ActionID),
					zap.Error(err))
				continue
			}
			if err := handle(update); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("subscription error", zap.Error(err))
		}
	}
}

// Printer returns a handler that writes updates to out in the given format.
func Printer(out io.Writer, format OutputFormat) Handler {
	return func(u *Update) error {
		if format == OutputFormatJSON {
			data, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("failed to marshal update: %w", err)
			}
			_, err = fmt.Fprintf(out, "%s\n", data)
			return err
		}
		_, err := fmt.Fprintln(out, FormatUpdate(u))
		return err
	}
}

// FormatUpdate renders an update as a single human-readable line.
func FormatUpdate(u *Update) string {
	ts := time.UnixMilli(u.ReceivedAtMs).Format("15:04:05")
	id := u.CaseID
	if len(id) > 8 {
		id = id[:8]
	}

	switch {
	case u.Contradiction != "":
		return fmt.Sprintf("[%s] ❌ Contradiction: case=%s action=%s (%s)", ts, id, u.ActionID, u.Contradiction)
	case u.Solution != nil:
		return fmt.Sprintf("[%s] ✅ Solved: case=%s action=%s %s", ts, id, u.ActionID, formatSolution(u.Solution))
	case u.Replayed:
		return fmt.Sprintf("[%s] 🔁 Already recorded: case=%s action=%s confidence=%.0f%%", ts, id, u.ActionID, u.Confidence*100)
	default:
		return fmt.Sprintf("[%s] 🔎 Evidence: case=%s action=%s remaining=%d confidence=%.0f%%", ts, id, u.ActionID, u.PossibleSolutions, u.Confidence*100)
	}
}

func recorded(e *reasoning.Engine, actionID string) bool {
	for _, ev := range e.History() {
		if ev.ActionID == actionID {
			return true
		}
	}
	return false
}

// formatSolution renders the solution as "k=v" pairs sorted by category name.
func formatSolution(solution map[string]string) string {
	keys := make([]string, 0, len(solution))
	for k := range solution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + solution[k]
	}
	return strings.Join(parts, ", ")
}
