// Package reasoning implements the deduction engine: per-category domains, clue
// propagation, AC-3 over explicit rules, and cost-aware action selection.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// DefaultMaxSteps caps AutoSolve when the caller gives no limit.
const DefaultMaxSteps = 20

// State is the lifecycle state of an engine.
type State string

const (
	StateActive       State = "active"
	StateSolved       State = "solved"
	StateContradicted State = "contradicted"
)

// CaseProvider supplies case state and executes actions on the engine's behalf.
type CaseProvider interface {
	GetCase(ctx context.Context, caseID string) (*casefile.Case, error)
	ExecuteAction(ctx context.Context, caseID, actionID string) (*casefile.Evidence, error)
}

// Engine owns the domains of one case and drives the evaluate, act, propagate loop.
// It is not safe for concurrent use; callers serialize access per case.
type Engine struct {
	caseID       string
	store        *DomainStore
	initialCount int
	totalCost    int
	history      []casefile.Evidence
	available    []casefile.Action
	log          *AuditLog
	scorer       *Scorer
	markers      []string
	contradicted error

	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWeights replaces the default scoring weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.scorer = NewScorer(w)
	}
}

// WithNegationMarkers replaces the words that turn a clue into an elimination.
func WithNegationMarkers(markers []string) Option {
	return func(e *Engine) {
		if len(markers) > 0 {
			e.markers = append([]string(nil), markers...)
		}
	}
}

// WithClock sets the clock used to timestamp audit steps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine for the case at its full candidate sets.
// Evidence already on the case is not applied; use Replay for that.
// If the case defines rules, AC-3 runs once before the engine is returned.
func NewEngine(c *casefile.Case, opts ...Option) (*Engine, error) {
	e := &Engine{
		caseID:  c.ID,
		scorer:  NewScorer(DefaultWeights()),
		markers: DefaultNegationMarkers,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = NewAuditLog(e.now)

	store, err := NewDomainStore(c.Categories, c.ExclusionGroups)
	if err != nil {
		return nil, fmt.Errorf("failed to build domains: %w", err)
	}
	e.store = store
	e.initialCount = store.PossibleSolutionCount()
	e.SetAvailableActions(c.Actions)

	e.log.Append(Step{
		Kind:      StepInitialization,
		Algorithm: AlgorithmEngine,
		Message:   fmt.Sprintf("Opened case with %d categories", len(c.Categories)),
		Details:   fmt.Sprintf("%d possible solutions (%s)", e.initialCount, store.SizeSummary()),
	})

	if len(c.Rules) > 0 {
		if _, err := e.EnforceRules(c.Rules); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("engine created",
		zap.String("case_id", e.caseID),
		zap.Int("solutions", e.initialCount),
		zap.Int("rules", len(c.Rules)))
	return e, nil
}

// Replay rebuilds an engine from a stored case by recording its evidence in order.
// On contradiction the engine is returned alongside the error, in StateContradicted.
func Replay(c *casefile.Case, opts ...Option) (*Engine, error) {
	e, err := NewEngine(c, opts...)
	if err != nil {
		return nil, err
	}
	for i := range c.Evidence {
		if _, err := e.RecordEvidence(&c.Evidence[i]); err != nil {
			return e, fmt.Errorf("replaying evidence %d (%s): %w", i, c.Evidence[i].ActionID, err)
		}
	}
	return e, nil
}

// CaseID returns the id of the case the engine reasons about.
func (e *Engine) CaseID() string { return e.caseID }

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	switch {
	case e.contradicted != nil:
		return StateContradicted
	case e.store.IsSolved():
		return StateSolved
	default:
		return StateActive
	}
}

// Contradiction returns the error that put the engine in StateContradicted, if any.
func (e *Engine) Contradiction() error { return e.contradicted }

// SetAvailableActions replaces the actions the engine may choose from.
func (e *Engine) SetAvailableActions(actions []casefile.Action) {
	e.available = make([]casefile.Action, len(actions))
	for i, a := range actions {
		e.available[i] = cloneAction(a)
	}
}

// AvailableActions returns a copy of the actions on offer.
func (e *Engine) AvailableActions() []casefile.Action {
	out := make([]casefile.Action, len(e.available))
	for i, a := range e.available {
		out[i] = cloneAction(a)
	}
	return out
}

// SelectNextAction ranks the available actions and returns the best one.
func (e *Engine) SelectNextAction() (*Selection, error) {
	if e.contradicted != nil {
		return nil, e.contradicted
	}
	sel, step, err := e.scorer.Select(e.store, e.totalCost, e.available)
	if err != nil {
		return nil, err
	}
	e.log.Append(step)
	e.logger.Debug("action selected",
		zap.String("case_id", e.caseID),
		zap.String("action_id", sel.Action.ID),
		zap.Float64("f_cost", sel.Evaluations[0].F),
		zap.Int("candidates", len(sel.Evaluations)))
	return sel, nil
}

// RecordEvidence applies executed-action evidence: it adds the cost, appends to the
// history and propagates the clue. The returned steps are the audit records produced.
// Malformed evidence is rejected with ErrInvalidEvidence before anything is recorded.
func (e *Engine) RecordEvidence(ev *casefile.Evidence) ([]Step, error) {
	if e.contradicted != nil {
		return nil, e.contradicted
	}
	if err := ValidateEvidence(ev); err != nil {
		return nil, err
	}

	e.totalCost += ev.Cost
	recorded := *ev
	recorded.Assertions = append([]casefile.Assertion(nil), ev.Assertions...)
	e.history = append(e.history, recorded)
	e.dropAvailable(ev.ActionID)

	if e.store.IsSolved() {
		return e.log.Append(Step{
			Kind:      StepCompletion,
			Algorithm: AlgorithmEngine,
			Message:   fmt.Sprintf("Recorded '%s' after the case was solved", ev.Action),
			Details:   "No reduction applied",
		}), nil
	}

	before := e.store.PossibleSolutionCount()
	steps, err := Propagate(e.store, ev, e.markers)
	stamped := e.log.Append(steps...)
	if err != nil {
		if !errors.Is(err, ErrContradiction) {
			return stamped, err
		}
		e.contradicted = err
		e.logger.Warn("contradiction detected",
			zap.String("case_id", e.caseID),
			zap.String("action_id", ev.ActionID),
			zap.Error(err))
		return stamped, err
	}

	after := e.store.PossibleSolutionCount()
	if e.store.IsSolved() {
		stamped = append(stamped, e.log.Append(Step{
			Kind:      StepCompletion,
			Algorithm: AlgorithmEngine,
			Message:   "Case solved",
			Details:   e.solutionSummary(),
		})...)
	}

	e.logger.Info("evidence recorded",
		zap.String("case_id", e.caseID),
		zap.String("action_id", ev.ActionID),
		zap.Int("cost", ev.Cost),
		zap.Int("solutions_before", before),
		zap.Int("solutions", after),
		zap.Float64("confidence", e.Confidence()))
	return stamped, nil
}

// EnforceRules runs AC-3 over the given rules and records the trace.
func (e *Engine) EnforceRules(rules []casefile.Rule) ([]Step, error) {
	if e.contradicted != nil {
		return nil, e.contradicted
	}
	constraints, err := RulesToConstraints(e.store, rules)
	if err != nil {
		return nil, err
	}
	steps, err := EnforceArcConsistency(e.store, constraints)
	stamped := e.log.Append(steps...)
	if err != nil {
		if !errors.Is(err, ErrContradiction) {
			return stamped, err
		}
		e.contradicted = err
		e.logger.Warn("rules are contradictory", zap.String("case_id", e.caseID), zap.Error(err))
		return stamped, err
	}
	return stamped, nil
}

// Investigate executes an offered action through the provider and records its evidence.
// A failed evidence announcement is logged; the evidence is still recorded.
func (e *Engine) Investigate(ctx context.Context, provider CaseProvider, actionID string) (*casefile.Evidence, []Step, error) {
	if e.contradicted != nil {
		return nil, nil, e.contradicted
	}
	if !e.offers(actionID) {
		return nil, nil, fmt.Errorf("%w: %s is not on offer", ErrInvalidAction, actionID)
	}

	ev, err := provider.ExecuteAction(ctx, e.caseID, actionID)
	if ev != nil && errors.Is(err, casefile.ErrPublishFailed) {
		e.logger.Warn("evidence stored but not announced",
			zap.String("case_id", e.caseID),
			zap.String("action_id", actionID),
			zap.Error(err))
		err = nil
	}
	if err != nil {
		if errors.Is(err, casefile.ErrActionNotFound) {
			e.dropAvailable(actionID)
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return nil, nil, fmt.Errorf("failed to execute action %s: %w", actionID, err)
	}

	steps, err := e.RecordEvidence(ev)
	return ev, steps, err
}

// PathStep is one iteration of AutoSolve.
type PathStep struct {
	Step         int                 `json:"step"`
	ActionID     string              `json:"action_id"`
	Action       string              `json:"action"`
	Clue         string              `json:"clue"`
	Cost         int                 `json:"cost"`
	Reasoning    string              `json:"reasoning"`
	DomainsAfter map[string][]string `json:"domains_after"`
	Steps        []Step              `json:"algorithm_steps"`
}

// SolveResult is the outcome of AutoSolve.
type SolveResult struct {
	Solved       bool                `json:"solved"`
	Solution     map[string]string   `json:"solution,omitempty"`
	Path         []PathStep          `json:"path"`
	TotalCost    int                 `json:"total_cost"`
	FinalDomains map[string][]string `json:"final_domains"`
	Exhausted    bool                `json:"exhausted"` // stopped because no action was left
}

// AutoSolve repeatedly selects, executes and records actions until the case is solved,
// no action is left, or maxSteps iterations have run. maxSteps <= 0 means DefaultMaxSteps.
// The path so far is returned even when an error stops the loop.
func (e *Engine) AutoSolve(ctx context.Context, provider CaseProvider, maxSteps int) (*SolveResult, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	result := &SolveResult{Path: []PathStep{}}
	err := e.contradicted
	for step := 1; err == nil && step <= maxSteps && !e.store.IsSolved(); step++ {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = e.refresh(ctx, provider); err != nil {
			break
		}

		var sel *Selection
		sel, err = e.SelectNextAction()
		if errors.Is(err, ErrNoActionsAvailable) {
			result.Exhausted = true
			err = nil
			break
		}
		if err != nil {
			break
		}

		var (
			ev    *casefile.Evidence
			steps []Step
		)
		ev, steps, err = e.Investigate(ctx, provider, sel.Action.ID)
		if ev != nil {
			result.Path = append(result.Path, PathStep{
				Step:         step,
				ActionID:     ev.ActionID,
				Action:       ev.Action,
				Clue:         ev.Clue,
				Cost:         ev.Cost,
				Reasoning:    sel.Explanation,
				DomainsAfter: e.store.Domains(),
				Steps:        steps,
			})
		}
		if err != nil {
			break
		}
	}

	result.TotalCost = e.totalCost
	result.FinalDomains = e.store.Domains()
	if solution, solveErr := e.store.ExtractSolution(); solveErr == nil {
		result.Solved = true
		result.Solution = solution
	}

	e.logger.Info("auto-solve finished",
		zap.String("case_id", e.caseID),
		zap.Int("steps", len(result.Path)),
		zap.Bool("solved", result.Solved),
		zap.Int("total_cost", result.TotalCost),
		zap.Error(err))
	return result, err
}

// refresh pulls the currently available actions from the provider.
func (e *Engine) refresh(ctx context.Context, provider CaseProvider) error {
	c, err := provider.GetCase(ctx, e.caseID)
	if err != nil {
		return fmt.Errorf("failed to load case %s: %w", e.caseID, err)
	}
	e.SetAvailableActions(c.Actions)
	return nil
}

// IsSolved reports whether every category is down to one candidate.
func (e *Engine) IsSolved() bool { return e.store.IsSolved() }

// ExtractSolution returns the solution, or ErrNotSolved.
func (e *Engine) ExtractSolution() (map[string]string, error) { return e.store.ExtractSolution() }

// PossibleSolutionCount returns the product of the current domain sizes.
func (e *Engine) PossibleSolutionCount() int { return e.store.PossibleSolutionCount() }

// InitialSolutionCount returns the product of the domain sizes when the case opened.
func (e *Engine) InitialSolutionCount() int { return e.initialCount }

// Confidence is 1 - remaining/initial solutions, and exactly 1 once solved.
func (e *Engine) Confidence() float64 {
	if e.store.IsSolved() {
		return 1
	}
	return 1 - float64(e.store.PossibleSolutionCount())/float64(e.initialCount)
}

// Domains returns a copy of the current domains.
func (e *Engine) Domains() map[string][]string { return e.store.Domains() }

// Store exposes the domain store for read-only queries.
func (e *Engine) Store() *DomainStore { return e.store }

// TotalCost is the sum of the costs of all recorded evidence.
func (e *Engine) TotalCost() int { return e.totalCost }

// History returns the recorded evidence, oldest first.
func (e *Engine) History() []casefile.Evidence {
	return append([]casefile.Evidence(nil), e.history...)
}

// AuditLog returns every audit step in order.
func (e *Engine) AuditLog() []Step { return e.log.All() }

// RecentSteps returns the last n audit steps.
func (e *Engine) RecentSteps(n int) []Step { return e.log.Last(n) }

func (e *Engine) offers(actionID string) bool {
	for _, a := range e.available {
		if a.ID == actionID {
			return true
		}
	}
	return false
}

func (e *Engine) dropAvailable(actionID string) {
	for i, a := range e.available {
		if a.ID == actionID {
			e.available = append(e.available[:i:i], e.available[i+1:]...)
			return
		}
	}
}

func (e *Engine) solutionSummary() string {
	parts := make([]string, 0, len(e.store.categories))
	for _, name := range e.store.categories {
		parts = append(parts, fmt.Sprintf("%s=%s", name, e.store.domains[name][0]))
	}
	return strings.Join(parts, ", ")
}
