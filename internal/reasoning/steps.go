package reasoning

import (
	"time"
)

// StepKind classifies an audit record.
type StepKind string

const (
	StepInitialization StepKind = "initialization"
	StepElimination    StepKind = "elimination"
	StepConfirmation   StepKind = "confirmation"
	StepFailure        StepKind = "failure"
	StepCompletion     StepKind = "completion"
	StepSearch         StepKind = "search"
)

// Algorithm labels used in audit records.
const (
	AlgorithmArcConsistency  = "CSP - Arc Consistency"
	AlgorithmDomainReduction = "CSP - Domain Reduction"
	AlgorithmForwardChecking = "CSP - Forward Checking"
	AlgorithmAC3             = "AC-3"
	AlgorithmAC3Revision     = "AC-3 Revision"
	AlgorithmSearch          = "A* Search"
	AlgorithmEngine          = "Reasoning Engine"
)

// Step is one audit record explaining what the engine did.
// Seq and Timestamp are assigned when the step is appended to an AuditLog.
type Step struct {
	Seq       int       `json:"seq"`
	Kind      StepKind  `json:"type"`
	Algorithm string    `json:"algorithm"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditLog is an append-only, ordered list of steps.
type AuditLog struct {
	steps []Step
	now   func() time.Time
}

// NewAuditLog creates an empty log stamping steps with the given clock.
func NewAuditLog(now func() time.Time) *AuditLog {
	if now == nil {
		now = time.Now
	}
	return &AuditLog{now: now}
}

// Append stamps the steps with sequence numbers and timestamps and stores them.
// Returns the stamped copies.
func (l *AuditLog) Append(steps ...Step) []Step {
	if len(steps) == 0 {
		return nil
	}
	stamped := make([]Step, len(steps))
	ts := l.now()
	for i, s := range steps {
		s.Seq = len(l.steps) + 1
		s.Timestamp = ts
		l.steps = append(l.steps, s)
		stamped[i] = s
	}
	return stamped
}

// All returns a copy of every step in order.
func (l *AuditLog) All() []Step {
	return append([]Step(nil), l.steps...)
}

// Last returns a copy of the most recent n steps (all of them if n exceeds the length).
func (l *AuditLog) Last(n int) []Step {
	if n <= 0 {
		return nil
	}
	if n > len(l.steps) {
		n = len(l.steps)
	}
	return append([]Step(nil), l.steps[len(l.steps)-n:]...)
}

// Len returns the number of recorded steps.
func (l *AuditLog) Len() int {
	return len(l.steps)
}
