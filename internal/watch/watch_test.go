package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/internal/session"
	"github.com/dyluth/sleuth/pkg/casefile"
)

func mansionCase() *casefile.Case {
	return &casefile.Case{
		ID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		Title: "Mansion",
		Categories: []casefile.Category{
			{Name: "suspect", Candidates: []string{"Plum", "Scarlet", "Mustard"}},
			{Name: "weapon", Candidates: []string{"Rope", "Knife", "Pipe"}},
			{Name: "location", Candidates: []string{"Hall", "Study", "Cellar"}},
		},
		Actions: []casefile.Action{
			{ID: "interview-cook", Label: "Interview the cook", Cost: 2, Eliminates: []string{"Plum"}, Clue: "Plum was not in the house"},
			{ID: "search-study", Label: "Search the study", Cost: 5, Eliminates: []string{"Knife", "Study"}, Clue: "A knife is missing from the study"},
		},
		Solution: map[string]string{"suspect": "Scarlet", "weapon": "Knife", "location": "Study"},
	}
}

func newWatcher(t *testing.T, provider reasoning.CaseProvider) *Watcher {
	t.Helper()
	registry := session.NewRegistry(session.WithLogger(zap.NewNop()))
	t.Cleanup(registry.Close)
	return New(provider, registry, zap.NewNop())
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("records new evidence", func(t *testing.T) {
		store := casefile.NewMemoryStore()
		c := mansionCase()
		require.NoError(t, store.CreateCase(ctx, c))
		w := newWatcher(t, store)

		// Load the engine before the action runs so the evidence is new to it.
		require.NoError(t, w.registry.Do(ctx, store, c.ID, func(*reasoning.Engine) error { return nil }))

		ev, err := store.ExecuteAction(ctx, c.ID, "search-study")
		require.NoError(t, err)

		update, err := w.Apply(ctx, &casefile.EvidenceEvent{CaseID: c.ID, Evidence: *ev})
		require.NoError(t, err)
		assert.False(t, update.Replayed)
		assert.Equal(t, reasoning.StateActive, update.State)
		assert.Equal(t, 3, update.PossibleSolutions)
		assert.InDelta(t, 1-3.0/27.0, update.Confidence, 1e-9)
		assert.NotEmpty(t, update.Steps)
		assert.Nil(t, update.Solution)
	})

	t.Run("evidence replayed on load is not applied twice", func(t *testing.T) {
		store := casefile.NewMemoryStore()
		c := mansionCase()
		require.NoError(t, store.CreateCase(ctx, c))
		w := newWatcher(t, store)

		ev, err := store.ExecuteAction(ctx, c.ID, "interview-cook")
		require.NoError(t, err)
		event := &casefile.EvidenceEvent{CaseID: c.ID, Evidence: *ev}

		update, err := w.Apply(ctx, event)
		require.NoError(t, err)
		assert.True(t, update.Replayed)
		assert.Empty(t, update.Steps)
		assert.Equal(t, 18, update.PossibleSolutions)

		update, err = w.Apply(ctx, event)
		require.NoError(t, err)
		assert.True(t, update.Replayed)

		var history []casefile.Evidence
		require.NoError(t, w.registry.Do(ctx, store, c.ID, func(e *reasoning.Engine) error {
			history = e.History()
			return nil
		}))
		assert.Len(t, history, 1)
	})

	t.Run("contradiction is reported in the update", func(t *testing.T) {
		store := casefile.NewMemoryStore()
		c := mansionCase()
		require.NoError(t, store.CreateCase(ctx, c))
		w := newWatcher(t, store)

		event := &casefile.EvidenceEvent{CaseID: c.ID, Evidence: casefile.Evidence{
			ActionID: "impossible",
			Assertions: []casefile.Assertion{
				{Kind: casefile.AssertionEliminate, Category: "suspect", Value: "Plum"},
				{Kind: casefile.AssertionEliminate, Category: "suspect", Value: "Scarlet"},
				{Kind: casefile.AssertionEliminate, Category: "suspect", Value: "Mustard"},
			},
		}}

		update, err := w.Apply(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, reasoning.StateContradicted, update.State)
		assert.Contains(t, update.Contradiction, "contradiction detected")
		assert.Equal(t, 27, update.PossibleSolutions, "domains unchanged")
	})

	t.Run("unknown case", func(t *testing.T) {
		store := casefile.NewMemoryStore()
		w := newWatcher(t, store)

		_, err := w.Apply(ctx, &casefile.EvidenceEvent{CaseID: mansionCase().ID})
		assert.ErrorIs(t, err, casefile.ErrCaseNotFound)
	})
}

func TestRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := casefile.NewClient(&redis.Options{Addr: mr.Addr()}, "watch-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := mansionCase()
	require.NoError(t, client.CreateCase(ctx, c))

	sub, err := client.SubscribeEvidenceEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	w := newWatcher(t, client)
	updates := make(chan *Update, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, sub, func(u *Update) error {
			updates <- u
			return nil
		})
	}()

	_, err = client.ExecuteAction(ctx, c.ID, "search-study")
	require.NoError(t, err)
	_, err = client.ExecuteAction(ctx, c.ID, "interview-cook")
	require.NoError(t, err)

	var got []*Update
	for len(got) < 2 {
		select {
		case u := <-updates:
			got = append(got, u)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for updates")
		}
	}

	assert.Equal(t, "search-study", got[0].ActionID)
	assert.Equal(t, "interview-cook", got[1].ActionID)
	assert.Equal(t, 2, got[1].PossibleSolutions)
	assert.Equal(t, c.ID, got[1].CaseID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestPrinter(t *testing.T) {
	u := &Update{
		CaseID:            "0f8fad5b-d9cb-469f-a165-70867728950e",
		ActionID:          "search-study",
		PossibleSolutions: 3,
		Confidence:        0.5,
		ReceivedAtMs:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Printer(&buf, OutputFormatJSON)(u))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "search-study", decoded["action_id"])
		assert.EqualValues(t, 3, decoded["possible_solutions"])
	})

	t.Run("default", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Printer(&buf, OutputFormatDefault)(u))
		assert.Contains(t, buf.String(), "🔎 Evidence: case=0f8fad5b action=search-study remaining=3 confidence=50%")
	})
}

func TestFormatUpdate(t *testing.T) {
	solved := &Update{CaseID: "abc", ActionID: "x", Solution: map[string]string{"weapon": "Knife", "suspect": "Scarlet"}}
	assert.Contains(t, FormatUpdate(solved), "✅ Solved: case=abc action=x suspect=Scarlet, weapon=Knife")

	contradicted := &Update{CaseID: "abc", ActionID: "x", Contradiction: "contradiction detected: suspect: empty"}
	assert.Contains(t, FormatUpdate(contradicted), "❌ Contradiction")

	replayed := &Update{CaseID: "abc", ActionID: "x", Replayed: true, Confidence: 1}
	assert.Contains(t, FormatUpdate(replayed), "🔁 Already recorded: case=abc action=x confidence=100%")
}
