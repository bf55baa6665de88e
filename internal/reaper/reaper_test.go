package reaper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayerIDFromKey(t *testing.T) {
	assert.Equal(t, "abc-123", playerIDFromKey("player:abc-123"))
	assert.Equal(t, "player", playerIDFromKey("player"))
}
