package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects Out and Err to buffers with colors disabled.
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevOut, prevErr, prevNoColor := Out, Err, color.NoColor
	Out, Err, color.NoColor = &out, &errOut, true
	t.Cleanup(func() { Out, Err, color.NoColor = prevOut, prevErr, prevNoColor })
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Case not found", "No case matches 'abcdef'", []string{})
		require.Error(t, err)
		assert.Equal(t, "Case not found", err.Error())
		assert.Equal(t, "Case not found\n\nNo case matches 'abcdef'\n", errOut.String())
	})

	t.Run("single suggestion is printed bare", func(t *testing.T) {
		_, errOut := capture(t)
		_ = Error("Case not found", "Explanation", []string{"Run 'sleuth new' first"})
		assert.Contains(t, errOut.String(), "\nRun 'sleuth new' first\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)
		_ = Error("Case not found", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	err := ErrorWithContext("Contradiction", "", map[string]string{
		"Suspect": "empty",
		"Case":    "abcdef12",
	}, nil)
	assert.Equal(t, "Contradiction", err.Error())
	assert.Equal(t, "Contradiction\n\n\n  Case: abcdef12\n  Suspect: empty\n", errOut.String())
}

func TestMessages(t *testing.T) {
	out, _ := capture(t)
	Success("Case created\n")
	Success("✓ done\n")
	Warning("Not solved yet\n")
	Step("Searching\n")
	Info("%d actions\n", 3)
	Println("plain")

	assert.Equal(t, "✓ Case created\n✓ done\n⚠️  Not solved yet\n→ Searching\n3 actions\nplain\n", out.String())
}
