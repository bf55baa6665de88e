// Package ids mints the identifiers shared across the coordination store:
// player, game, and session IDs.
package ids

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh random identifier suitable for a player or game ID.
func New() string {
	return uuid.New().String()
}

// SessionID derives this session runner's stable identity, following §4.3:
// explicit configuration wins, then the hostname if it matches the
// "session-*" shape, else a fresh UUID.
func SessionID(configured string) string {
	if configured != "" {
		return configured
	}

	if host, err := os.Hostname(); err == nil && strings.HasPrefix(host, "session-") {
		return host
	}

	return New()
}
