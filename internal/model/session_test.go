package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_AddAndRemoveGame_KeepsAccountingConsistent(t *testing.T) {
	s := Session{ID: "s1", MaxSlots: 3}
	s.Recompute()
	assert.Equal(t, 3, s.AvailableSlots)

	s.AddGame("g1")
	assert.Equal(t, 1, s.ActiveGames)
	assert.Equal(t, 2, s.AvailableSlots)
	assert.True(t, s.HasGame("g1"))

	s.AddGame("g2")
	assert.Equal(t, 2, s.ActiveGames)
	assert.Equal(t, 1, s.AvailableSlots)

	removed := s.RemoveGame("g1")
	assert.True(t, removed)
	assert.Equal(t, 1, s.ActiveGames)
	assert.Equal(t, 2, s.AvailableSlots)
	assert.False(t, s.HasGame("g1"))
}

func TestSession_RemoveGame_UnknownIDIsNoop(t *testing.T) {
	s := Session{ID: "s1", MaxSlots: 2, ActiveGames: 1}
	s.Recompute()

	removed := s.RemoveGame("does-not-exist")

	assert.False(t, removed)
	assert.Equal(t, 1, s.ActiveGames)
}

func TestSession_Recompute_NeverGoesNegative(t *testing.T) {
	s := Session{MaxSlots: 1, ActiveGames: 5}
	s.Recompute()
	assert.Equal(t, 0, s.AvailableSlots)
}

func TestSessionFromFields_RoundTrip(t *testing.T) {
	s := Session{ID: "s1", MaxSlots: 5, ActiveGames: 2, GameIDs: []string{"g1", "g2"}}
	s.Recompute()

	fields := make(map[string]string, len(s.ToFields()))
	for k, v := range s.ToFields() {
		fields[k] = v.(string)
	}

	parsed, ok := SessionFromFields("s1", fields)
	assert.True(t, ok)
	assert.Equal(t, s.MaxSlots, parsed.MaxSlots)
	assert.Equal(t, s.ActiveGames, parsed.ActiveGames)
	assert.Equal(t, s.AvailableSlots, parsed.AvailableSlots)
	assert.Equal(t, s.GameIDs, parsed.GameIDs)
}
