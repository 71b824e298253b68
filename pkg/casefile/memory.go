package casefile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process case provider with the same semantics as Client,
// minus expiry and Pub/Sub. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	cases map[string]*Case
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases: make(map[string]*Case),
		now:   time.Now,
	}
}

// CreateCase stores a copy of the case, replacing any case with the same id.
func (m *MemoryStore) CreateCase(ctx context.Context, cs *Case) error {
	if err := cs.Validate(); err != nil {
		return fmt.Errorf("invalid case: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[cs.ID] = cs.Clone()
	return nil
}

// GetCase returns a copy of the case, or ErrCaseNotFound.
func (m *MemoryStore) GetCase(ctx context.Context, caseID string) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	return cs.Clone(), nil
}

// CaseExists reports whether a case is stored.
func (m *MemoryStore) CaseExists(ctx context.Context, caseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.cases[caseID]
	return ok, nil
}

// ExecuteAction removes the action from availability, records its evidence and cost.
func (m *MemoryStore) ExecuteAction(ctx context.Context, caseID, actionID string) (*Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}

	for i := range cs.Actions {
		if cs.Actions[i].ID != actionID {
			continue
		}
		evidence := cs.Actions[i].Reveal(m.now())
		cs.Actions = append(cs.Actions[:i:i], cs.Actions[i+1:]...)
		cs.Evidence = append(cs.Evidence, *evidence)
		cs.TotalCost += evidence.Cost

		out := *evidence
		out.Assertions = append([]Assertion(nil), evidence.Assertions...)
		return &out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
}

// DeleteCase removes a case. Returns false if it did not exist.
func (m *MemoryStore) DeleteCase(ctx context.Context, caseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.cases[caseID]
	delete(m.cases, caseID)
	return ok, nil
}

// ScanCases returns the sorted ids of all cases whose id starts with prefix.
func (m *MemoryStore) ScanCases(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id := range m.cases {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
