package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGame_ShouldFinalize_RunningPastEndAt(t *testing.T) {
	now := time.Now()
	g := Game{State: GameRunning, EndAt: now.Add(-time.Second)}
	assert.True(t, g.ShouldFinalize(now))
}

func TestGame_ShouldFinalize_RunningBeforeEndAt(t *testing.T) {
	now := time.Now()
	g := Game{State: GameRunning, EndAt: now.Add(time.Minute)}
	assert.False(t, g.ShouldFinalize(now))
}

func TestGame_ShouldFinalize_MissingEndAtIsFailSafe(t *testing.T) {
	now := time.Now()
	g := Game{State: GameRunning}
	assert.True(t, g.ShouldFinalize(now))
}

func TestGame_ShouldFinalize_FinishedNeverRefinalizes(t *testing.T) {
	now := time.Now()
	g := Game{State: GameFinished, EndAt: now.Add(-time.Hour)}
	assert.False(t, g.ShouldFinalize(now))
}
