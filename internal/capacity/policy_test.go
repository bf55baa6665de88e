package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsBootstrap(t *testing.T) {
	assert.True(t, needsBootstrap(0, 1))
	assert.False(t, needsBootstrap(1, 1))
	assert.False(t, needsBootstrap(2, 1))
}

func TestStarvationOverride(t *testing.T) {
	m := Metrics{QueueLength: 30, TotalSessions: 2}
	assert.True(t, starvationOverride(m, 10, 0, 5))
	assert.False(t, starvationOverride(m, 10, 1, 5), "any spare capacity cancels the override")
	assert.False(t, starvationOverride(m, 40, 0, 5), "queue below a full batch doesn't trigger")
	assert.False(t, starvationOverride(m, 10, 0, 2), "already at max_sessions, nothing to do")
}

func TestShouldScaleUp(t *testing.T) {
	high := Metrics{UsedSlots: 9, TotalSlots: 10}
	low := Metrics{UsedSlots: 1, TotalSlots: 10}
	assert.True(t, shouldScaleUp(high, 0.8))
	assert.False(t, shouldScaleUp(low, 0.8))
}

func TestNeededSessions_ClampsToRange(t *testing.T) {
	// 250 in-game+queued players / (10 per game * 1 slot) = 25 sessions needed, clamped to 5.
	assert.Equal(t, 5, neededSessions(200, 50, 10, 1, 1, 5))
	// Demand tiny: still at least min.
	assert.Equal(t, 1, neededSessions(0, 0, 10, 1, 1, 5))
	// Exactly on a boundary.
	assert.Equal(t, 3, neededSessions(20, 10, 10, 1, 1, 5))
}

func TestNeededSessions_DegenerateInputsFallBackToMin(t *testing.T) {
	assert.Equal(t, 2, neededSessions(100, 10, 0, 1, 2, 5))
	assert.Equal(t, 2, neededSessions(100, 10, 10, 0, 2, 5))
}

func TestShouldScaleDown(t *testing.T) {
	low := Metrics{UsedSlots: 1, TotalSlots: 10, TotalSessions: 3}
	assert.True(t, shouldScaleDown(low, 0.3, 1))
	assert.False(t, shouldScaleDown(low, 0.3, 3), "already at min_sessions")

	high := Metrics{UsedSlots: 9, TotalSlots: 10, TotalSessions: 3}
	assert.False(t, shouldScaleDown(high, 0.3, 1))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, clamp(-5, 1, 5))
	assert.Equal(t, 5, clamp(50, 1, 5))
	assert.Equal(t, 3, clamp(3, 1, 5))
}
