package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandwich-match/arena/internal/model"
)

func TestClassifyBatch_DropsStaleHints(t *testing.T) {
	states := map[string]string{
		"a": string(model.StateInLobby),
		"b": string(model.StateReady),
		"c": string(model.StateReady),
	}

	picked, leftover := classifyBatch([]string{"a", "b", "c"}, states, 0, 2)

	assert.Equal(t, []string{"b", "c"}, picked)
	assert.Empty(t, leftover)
}

func TestClassifyBatch_MissingRecordIsStale(t *testing.T) {
	states := map[string]string{"b": string(model.StateReady)}

	picked, leftover := classifyBatch([]string{"a", "b"}, states, 0, 2)

	assert.Equal(t, []string{"b"}, picked)
	assert.Empty(t, leftover)
}

func TestClassifyBatch_ExtrasGoToLeftover(t *testing.T) {
	states := map[string]string{
		"a": string(model.StateReady),
		"b": string(model.StateReady),
		"c": string(model.StateReady),
	}

	picked, leftover := classifyBatch([]string{"a", "b", "c"}, states, 0, 2)

	assert.Equal(t, []string{"a", "b"}, picked)
	assert.Equal(t, []string{"c"}, leftover)
}

func TestClassifyBatch_RespectsAlreadyPicked(t *testing.T) {
	states := map[string]string{
		"a": string(model.StateReady),
		"b": string(model.StateReady),
	}

	// Already have 1 of 2 needed; only room for one more.
	picked, leftover := classifyBatch([]string{"a", "b"}, states, 1, 2)

	assert.Equal(t, []string{"a"}, picked)
	assert.Equal(t, []string{"b"}, leftover)
}

func TestClassifyBatch_EmptyInputYieldsEmptyOutput(t *testing.T) {
	picked, leftover := classifyBatch(nil, map[string]string{}, 0, 4)

	assert.Empty(t, picked)
	assert.Empty(t, leftover)
}
