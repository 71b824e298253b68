package casefile

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCaseHashRoundTrip tests that case metadata survives hash encoding
func TestCaseHashRoundTrip(t *testing.T) {
	original := newTestCase()
	original.TotalCost = 7
	original.ExclusionGroups = [][]string{{"suspect", "weapon"}}

	hash, err := CaseToHash(original)
	require.NoError(t, err)

	result, err := HashToCase(stringify(hash))
	require.NoError(t, err)

	assert.Equal(t, original.ID, result.ID)
	assert.Equal(t, original.Title, result.Title)
	assert.Equal(t, original.Categories, result.Categories)
	assert.Equal(t, original.Rules, result.Rules)
	assert.Equal(t, original.ExclusionGroups, result.ExclusionGroups)
	assert.Equal(t, original.Solution, result.Solution)
	assert.Equal(t, 7, result.TotalCost)
	assert.Equal(t, original.CreatedAtMs, result.CreatedAtMs)

	// Actions and evidence live under their own keys
	assert.Empty(t, result.Actions)
	assert.Empty(t, result.Evidence)
}

// TestCaseHashRoundTrip_NoSolution tests that a missing solution stays nil
func TestCaseHashRoundTrip_NoSolution(t *testing.T) {
	original := newTestCase()
	original.Solution = nil

	hash, err := CaseToHash(original)
	require.NoError(t, err)
	assert.Equal(t, "", hash["solution"])

	result, err := HashToCase(stringify(hash))
	require.NoError(t, err)
	assert.Nil(t, result.Solution)
}

func TestHashToCase_Malformed(t *testing.T) {
	hash := stringify(mustHash(t, newTestCase()))

	t.Run("bad categories JSON", func(t *testing.T) {
		h := copyHash(hash)
		h["categories"] = "{not json"
		_, err := HashToCase(h)
		assert.ErrorContains(t, err, "categories")
	})

	t.Run("bad total cost", func(t *testing.T) {
		h := copyHash(hash)
		h["total_cost"] = "lots"
		_, err := HashToCase(h)
		assert.ErrorContains(t, err, "total_cost")
	})
}

func TestActionAndEvidenceEncoding(t *testing.T) {
	c := newTestCase()

	raw, err := encodeAction(&c.Actions[1])
	require.NoError(t, err)
	action, err := decodeAction(raw)
	require.NoError(t, err)
	assert.Equal(t, c.Actions[1], *action)

	e := Evidence{ActionID: "a", Action: "A", Clue: "clue", Cost: 4, RecordedAtMs: 42}
	raw, err = encodeEvidence(&e)
	require.NoError(t, err)
	decoded, err := decodeEvidence(raw)
	require.NoError(t, err)
	assert.Equal(t, e, *decoded)
}

func mustHash(t *testing.T, c *Case) map[string]interface{} {
	t.Helper()
	hash, err := CaseToHash(c)
	require.NoError(t, err)
	return hash
}

func copyHash(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// stringify converts a hash to the string map Redis would return
func stringify(hash map[string]interface{}) map[string]string {
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = toString(v)
	}
	return out
}

// toString converts interface{} to string (simulates Redis storage)
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
