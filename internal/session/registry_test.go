package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/pkg/casefile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testCase() *casefile.Case {
	return &casefile.Case{
		ID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301",
		Categories: []casefile.Category{
			{Name: "suspect", Candidates: []string{"Plum", "Scarlet", "Mustard"}},
			{Name: "weapon", Candidates: []string{"Rope", "Knife"}},
		},
		Actions: []casefile.Action{
			{ID: "interview-cook", Label: "Interview the cook", Cost: 2, Clue: "Plum was not in the house"},
			{ID: "ask-butler", Label: "Ask the butler", Cost: 3, Clue: "Mustard didn't leave the library"},
		},
	}
}

// manualClock is advanced by hand in tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_DoLoadsAndReplays(t *testing.T) {
	ctx := context.Background()
	store := casefile.NewMemoryStore()
	c := testCase()
	require.NoError(t, store.CreateCase(ctx, c))
	_, err := store.ExecuteAction(ctx, c.ID, "interview-cook")
	require.NoError(t, err)

	r := NewRegistry()
	defer r.Close()

	err = r.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
		assert.Equal(t, []string{"Scarlet", "Mustard"}, e.Domains()["suspect"])
		assert.Equal(t, 2, e.TotalCost())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	// The second call reuses the engine rather than replaying again.
	err = r.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
		_, err := e.RecordEvidence(&casefile.Evidence{ActionID: "note", Clue: "not Mustard"})
		return err
	})
	require.NoError(t, err)
	err = r.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
		assert.Equal(t, []string{"Scarlet"}, e.Domains()["suspect"])
		return nil
	})
	require.NoError(t, err)
}

func TestRegistry_DoUnknownCase(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	err := r.Do(context.Background(), casefile.NewMemoryStore(), "missing", func(*reasoning.Engine) error { return nil })
	assert.True(t, casefile.IsNotFound(err))
	assert.Zero(t, r.Len())
}

func TestRegistry_OpenContradictoryHistory(t *testing.T) {
	c := testCase()
	c.Evidence = []casefile.Evidence{
		{ActionID: "a", Assertions: []casefile.Assertion{{Kind: casefile.AssertionConfirm, Category: "weapon", Value: "Rope"}}},
		{ActionID: "b", Assertions: []casefile.Assertion{{Kind: casefile.AssertionEliminate, Category: "weapon", Value: "Rope"}}},
	}

	r := NewRegistry()
	defer r.Close()

	e, err := r.Open(c)
	require.NoError(t, err)
	assert.Equal(t, reasoning.StateContradicted, e.State())
}

func TestRegistry_EngineOptionsApply(t *testing.T) {
	c := testCase()
	c.Evidence = []casefile.Evidence{{ActionID: "a", Clue: "never Plum"}}

	r := NewRegistry(WithEngineOptions(reasoning.WithNegationMarkers([]string{"never"})))
	defer r.Close()

	e, err := r.Open(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"Scarlet", "Mustard"}, e.Domains()["suspect"])
}

func TestRegistry_SerializesPerCase(t *testing.T) {
	ctx := context.Background()
	store := casefile.NewMemoryStore()
	c := testCase()
	require.NoError(t, store.CreateCase(ctx, c))

	r := NewRegistry()
	defer r.Close()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		inside int
		peak   int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
				mu.Lock()
				inside++
				if inside > peak {
					peak = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)
				e.SetAvailableActions(e.AvailableActions())

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestRegistry_ResetAndSweep(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	r := NewRegistry(WithTTL(time.Minute), WithSweepInterval(time.Hour), WithClock(clock.Now))
	defer r.Close()

	first := testCase()
	second := testCase()
	second.ID = "3f2504e0-4f89-41d3-9a0c-0305e82c3302"
	_, err := r.Open(first)
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	_, err = r.Open(second)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Reset(second.ID))
	assert.False(t, r.Reset(second.ID))
	assert.Zero(t, r.Len())
}

func TestRegistry_SweepSkipsBusySessions(t *testing.T) {
	ctx := context.Background()
	store := casefile.NewMemoryStore()
	c := testCase()
	require.NoError(t, store.CreateCase(ctx, c))

	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	r := NewRegistry(WithTTL(time.Minute), WithSweepInterval(time.Hour), WithClock(clock.Now))
	defer r.Close()

	entered := make(chan *reasoning.Engine)
	finish := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- r.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
			entered <- e
			<-finish
			return nil
		})
	}()
	first := <-entered

	clock.Advance(5 * time.Minute)
	assert.Zero(t, r.Sweep(), "session is in use")
	assert.Equal(t, 1, r.Len())

	close(finish)
	require.NoError(t, <-done)

	assert.Zero(t, r.Sweep(), "idle period restarts when the call returns")
	require.NoError(t, r.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
		assert.Same(t, first, e)
		return nil
	}))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Zero(t, r.Len())
}

func TestRegistry_JanitorEvicts(t *testing.T) {
	r := NewRegistry(WithTTL(20*time.Millisecond), WithSweepInterval(5*time.Millisecond))
	defer r.Close()

	_, err := r.Open(testCase())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(WithTTL(time.Minute))
	_, err := r.Open(testCase())
	require.NoError(t, err)

	r.Close()
	r.Close()

	assert.Zero(t, r.Len())
	_, err = r.Open(testCase())
	assert.ErrorIs(t, err, ErrClosed)
	err = r.Do(context.Background(), casefile.NewMemoryStore(), testCase().ID, func(*reasoning.Engine) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}
