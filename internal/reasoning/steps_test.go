package reasoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuditLog(t *testing.T) {
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	log := NewAuditLog(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	first := log.Append(Step{Kind: StepInitialization, Message: "one"})
	more := log.Append(Step{Kind: StepElimination, Message: "two"}, Step{Kind: StepElimination, Message: "three"})

	assert.Equal(t, 1, first[0].Seq)
	assert.Equal(t, []int{2, 3}, []int{more[0].Seq, more[1].Seq})
	assert.Equal(t, more[0].Timestamp, more[1].Timestamp, "a batch shares one timestamp")
	assert.True(t, more[0].Timestamp.After(first[0].Timestamp))
	assert.Equal(t, 3, log.Len())
	assert.Nil(t, log.Append())

	all := log.All()
	all[0].Message = "changed"
	assert.Equal(t, "one", log.All()[0].Message)

	assert.Equal(t, []string{"two", "three"}, []string{log.Last(2)[0].Message, log.Last(2)[1].Message})
}

func TestContradictionError(t *testing.T) {
	err := &ContradictionError{Category: "suspect", Value: "B", Reason: "eliminating B leaves no candidates"}
	assert.ErrorIs(t, err, ErrContradiction)
	assert.Equal(t, "contradiction detected: suspect=B: eliminating B leaves no candidates", err.Error())

	noValue := &ContradictionError{Category: "weapon", Reason: "no value is consistent with suspect"}
	assert.Equal(t, "contradiction detected: weapon: no value is consistent with suspect", noValue.Error())
}
