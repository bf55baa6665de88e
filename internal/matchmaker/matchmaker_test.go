package matchmaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTarget_BoundedByQueueAndCapacity(t *testing.T) {
	assert.Equal(t, 2, computeTarget(250, 100, 5)) // 2 full batches, capacity allows more
	assert.Equal(t, 1, computeTarget(250, 100, 1)) // capacity is the binding constraint
	assert.Equal(t, 0, computeTarget(50, 100, 5))  // not even one full batch
	assert.Equal(t, 0, computeTarget(250, 100, 0)) // no capacity at all
}

func TestComputeTarget_ZeroPlayersPerGameIsSafe(t *testing.T) {
	assert.Equal(t, 0, computeTarget(100, 0, 5))
}
