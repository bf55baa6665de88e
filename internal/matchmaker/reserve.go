package matchmaker

import (
	"context"
	"errors"

	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// ErrNoCapacity is returned when sessions:available has no member with a
// positive score.
var ErrNoCapacity = errors.New("no session capacity available")

// reserveSlot picks the session with the most free slots, atomically
// decrements its score, and removes it from the index once exhausted
// (§4.2 "Session slot reservation"). It does not yet touch the session
// hash's active_games/game_ids — that happens once a game ID exists, in
// materialize, so a failed collection can release cleanly without having
// half-written the session record.
func reserveSlot(ctx context.Context, st *store.Store) (sessionID string, err error) {
	top, err := st.ZHighestScore(ctx, store.AvailableSessionsKey, 1)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "", ErrNoCapacity
	}

	sessionID, ok := top[0].Member.(string)
	if !ok {
		return "", ErrNoCapacity
	}

	newScore, err := st.ZIncr(ctx, store.AvailableSessionsKey, sessionID, -1)
	if err != nil {
		return "", err
	}
	if newScore <= 0 {
		if err := st.ZRemove(ctx, store.AvailableSessionsKey, sessionID); err != nil {
			return "", err
		}
	}

	return sessionID, nil
}

// releaseSlot is the inverse of reserveSlot: it restores the session's
// previous score in sessions:available. Used when a reservation must be
// abandoned because fewer than N ready players could be collected
// (§4.2.1 step 4, §4.2 step 3's "release the slot" instruction).
func releaseSlot(ctx context.Context, st *store.Store, sessionID string) error {
	newScore, err := st.ZIncr(ctx, store.AvailableSessionsKey, sessionID, 1)
	if err != nil {
		return err
	}
	_ = newScore
	return nil
}

// attachGame records sessionID as hosting gameID: increments active_games,
// appends to game_ids, and republishes the session record. This is the
// "update the session accounting" half of §4.2's game materialization, and
// its inverse is performed by the session runner at finalization (§4.3),
// not here.
func attachGame(ctx context.Context, st *store.Store, sessionID, gameID string) error {
	fields, err := st.HGetAllMap(ctx, store.SessionKey(sessionID))
	if err != nil {
		return err
	}
	sess, ok := model.SessionFromFields(sessionID, fields)
	if !ok {
		return errNoSuchSession
	}

	sess.AddGame(gameID)

	return st.HSetFields(ctx, store.SessionKey(sessionID), sess.ToFields(), 0)
}

var errNoSuchSession = errors.New("matchmaker: session record missing during attach")
