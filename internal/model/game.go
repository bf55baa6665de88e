package model

import (
	"strconv"
	"time"
)

// GameState is one of the two states a game record can hold.
type GameState string

const (
	GameRunning  GameState = "RUNNING"
	GameFinished GameState = "FINISHED"
)

// Game mirrors the game:{id} hash. Players are tracked separately in the
// paired game:{id}:players set (§3).
type Game struct {
	ID         string
	SessionID  string
	State      GameState
	StartedAt  time.Time
	EndAt      time.Time
	FinishedAt time.Time
}

// ToFields renders the game for a hash write.
func (g Game) ToFields() map[string]interface{} {
	fields := map[string]interface{}{
		"session_id": g.SessionID,
		"state":      string(g.State),
		"started_at": strconv.FormatInt(g.StartedAt.UnixMilli(), 10),
		"end_at":     strconv.FormatInt(g.EndAt.UnixMilli(), 10),
	}
	if !g.FinishedAt.IsZero() {
		fields["finished_at"] = strconv.FormatInt(g.FinishedAt.UnixMilli(), 10)
	}
	return fields
}

// GameFromFields parses a game hash. ok is false for a missing record or
// one with no state field — callers treat that the same way as "missing"
// per §4.3's liveness pass. An absent or unparsable end_at still yields
// ok=true with a zero EndAt.
func GameFromFields(id string, fields map[string]string) (Game, bool) {
	state, hasState := fields["state"]
	if !hasState || state == "" {
		return Game{}, false
	}

	g := Game{ID: id, SessionID: fields["session_id"], State: GameState(state)}

	if ms, err := strconv.ParseInt(fields["started_at"], 10, 64); err == nil {
		g.StartedAt = time.UnixMilli(ms)
	}
	if ms, err := strconv.ParseInt(fields["end_at"], 10, 64); err == nil {
		g.EndAt = time.UnixMilli(ms)
	} else {
		// Absent/malformed end_at is itself a malformed record per §4.3:
		// "If end_at is absent, finalize immediately (fail-safe)." We still
		// return ok=true here; HasEndAt below is what the runner checks.
	}
	if ms, err := strconv.ParseInt(fields["finished_at"], 10, 64); err == nil {
		g.FinishedAt = time.UnixMilli(ms)
	}

	return g, true
}

// HasEndAt reports whether EndAt is set. An absent or unparsable end_at
// leaves EndAt at its zero value, so both read as "no end_at" here
// (fail-safe finalize).
func (g Game) HasEndAt() bool {
	return !g.EndAt.IsZero()
}

// ShouldFinalize reports whether, as of now, this running game's duration
// has elapsed or its end_at is missing entirely (§4.3 liveness pass).
func (g Game) ShouldFinalize(now time.Time) bool {
	if g.State != GameRunning {
		return false
	}
	if !g.HasEndAt() {
		return true
	}
	return !now.Before(g.EndAt)
}
