package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowsLobbyDowngrade_BlocksReadyAndInGame(t *testing.T) {
	assert.True(t, AllowsLobbyDowngrade(""))
	assert.True(t, AllowsLobbyDowngrade(StateInLobby))
	assert.False(t, AllowsLobbyDowngrade(StateReady))
	assert.False(t, AllowsLobbyDowngrade(StateInGame))
}

func TestPlayer_IsStale(t *testing.T) {
	now := time.Now()

	fresh := Player{HeartbeatAt: now.Add(-5 * time.Second)}
	assert.False(t, fresh.IsStale(now, 30*time.Second))

	stale := Player{HeartbeatAt: now.Add(-31 * time.Second)}
	assert.True(t, stale.IsStale(now, 30*time.Second))

	missing := Player{}
	assert.True(t, missing.IsStale(now, 30*time.Second))
}

func TestPlayerFromFields_RoundTrip(t *testing.T) {
	p := Player{
		ID:          "p1",
		State:       StateReady,
		HeartbeatAt: time.UnixMilli(1_700_000_000_000),
		GameID:      "",
		SessionID:   "",
	}

	parsed, ok := PlayerFromFields("p1", stringFields(p.ToFields()))
	assert.True(t, ok)
	assert.Equal(t, p.ID, parsed.ID)
	assert.Equal(t, p.State, parsed.State)
	assert.Equal(t, p.HeartbeatAt.UnixMilli(), parsed.HeartbeatAt.UnixMilli())
}

func TestPlayerFromFields_MissingStateIsNotOK(t *testing.T) {
	_, ok := PlayerFromFields("p1", map[string]string{})
	assert.False(t, ok)
}

func stringFields(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v.(string)
	}
	return out
}
