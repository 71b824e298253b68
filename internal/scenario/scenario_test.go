package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/sleuth/pkg/casefile"
)

func TestLoad(t *testing.T) {
	def, err := Load("testdata/manor.yml")
	require.NoError(t, err)

	assert.Equal(t, "Death at Tudor Manor", def.Title)
	require.Len(t, def.Categories, 3)
	assert.Equal(t, []string{"Rope", "Knife", "Pipe"}, def.Categories[1].Candidates)
	require.Len(t, def.Actions, 5)
	assert.Equal(t, 5, def.Actions[1].Cost)
	assert.Equal(t, []casefile.Assertion{
		{Kind: casefile.AssertionEliminate, Category: "weapon", Value: "Rope"},
		{Kind: casefile.AssertionEliminate, Category: "weapon", Value: "Pipe"},
	}, def.Actions[4].Assertions)
	require.Len(t, def.Rules, 1)
	assert.Equal(t, casefile.Binding{Category: "suspect", Value: "Mustard"}, def.Rules[0].A)
	assert.Equal(t, "Knife", def.Solution["weapon"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "title: x\nsuspects: [a]\n", "field suspects not found"},
		{"missing title", "categories: []\n", "title is required"},
		{"not yaml", "title: [unterminated\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorContains(t, err, "failed to read case definition")
}

func TestLoadDir(t *testing.T) {
	defs, names, err := LoadDir("testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{"manor.yml", "seating.yaml"}, names)
	assert.Equal(t, "Who sat where", defs["seating.yaml"].Title)

	t.Run("a broken file fails the whole load", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("title: [\n"), 0644))
		_, _, err := LoadDir(dir)
		assert.ErrorContains(t, err, "bad.yml")
	})
}

func TestDefinition_NewCase(t *testing.T) {
	def, err := Load("testdata/manor.yml")
	require.NoError(t, err)

	id := uuid.New().String()
	now := time.UnixMilli(1700000000000)
	c, err := def.NewCase(id, now)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, int64(1700000000000), c.CreatedAtMs)
	assert.Empty(t, c.Evidence)

	c.Categories[0].Candidates[0] = "Green"
	assert.Equal(t, "Plum", def.Categories[0].Candidates[0], "the case does not share memory with the definition")

	t.Run("invalid definition", func(t *testing.T) {
		bad := *def
		bad.Solution = map[string]string{"suspect": "Nobody"}
		_, err := bad.NewCase(id, now)
		assert.ErrorContains(t, err, "invalid case definition")
	})
}
