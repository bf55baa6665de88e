package model

import (
	"strconv"
	"strings"
	"time"
)

// Session mirrors the session:{id} hash (§3). GameIDs is the comma-joined
// list the spec describes, kept as a slice in memory and joined/split only
// at the store boundary.
type Session struct {
	ID             string
	MaxSlots       int
	ActiveGames    int
	GameIDs        []string
	AvailableSlots int
	UpdatedAt      time.Time
}

// Recompute derives AvailableSlots from MaxSlots and ActiveGames, the one
// quantity every writer (runner, matchmaker, reconciliation) must keep in
// sync per invariant 3.
func (s *Session) Recompute() {
	s.AvailableSlots = s.MaxSlots - s.ActiveGames
	if s.AvailableSlots < 0 {
		s.AvailableSlots = 0
	}
}

// ToFields renders the session for a hash write.
func (s Session) ToFields() map[string]interface{} {
	return map[string]interface{}{
		"max_slots":       strconv.Itoa(s.MaxSlots),
		"active_games":    strconv.Itoa(s.ActiveGames),
		"game_ids":        strings.Join(s.GameIDs, ","),
		"available_slots": strconv.Itoa(s.AvailableSlots),
		"updated_at":      strconv.FormatInt(s.UpdatedAt.UnixMilli(), 10),
	}
}

// SessionFromFields parses a session hash.
func SessionFromFields(id string, fields map[string]string) (Session, bool) {
	maxSlots, ok := fields["max_slots"]
	if !ok {
		return Session{}, false
	}

	ms, _ := strconv.Atoi(maxSlots)
	ag, _ := strconv.Atoi(fields["active_games"])
	avail, _ := strconv.Atoi(fields["available_slots"])

	var gameIDs []string
	if raw := fields["game_ids"]; raw != "" {
		gameIDs = strings.Split(raw, ",")
	}

	var updated time.Time
	if msv, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		updated = time.UnixMilli(msv)
	}

	return Session{
		ID:             id,
		MaxSlots:       ms,
		ActiveGames:    ag,
		GameIDs:        gameIDs,
		AvailableSlots: avail,
		UpdatedAt:      updated,
	}, true
}

// AddGame appends a game ID and increments the active count in place.
func (s *Session) AddGame(gameID string) {
	s.GameIDs = append(s.GameIDs, gameID)
	s.ActiveGames++
	s.Recompute()
}

// RemoveGame drops a game ID and decrements the active count in place. It
// is a no-op if the ID is not present, keeping finalization idempotent.
func (s *Session) RemoveGame(gameID string) bool {
	for i, id := range s.GameIDs {
		if id == gameID {
			s.GameIDs = append(s.GameIDs[:i], s.GameIDs[i+1:]...)
			if s.ActiveGames > 0 {
				s.ActiveGames--
			}
			s.Recompute()
			return true
		}
	}
	return false
}

// HasGame reports whether gameID is already tracked by this session,
// letting the runner's discovery pass diff against what it locally tracks.
func (s Session) HasGame(gameID string) bool {
	for _, id := range s.GameIDs {
		if id == gameID {
			return true
		}
	}
	return false
}
