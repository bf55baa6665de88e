package runner

import (
	"context"
	"time"

	"github.com/sandwich-match/arena/internal/events"
	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// finalize performs the exactly-once game finalization of §4.3: it is
// guarded by lock:finish:{game_id}, a SETNX-with-TTL the acquirer never
// explicitly releases. Combined with the game's own state check, this
// holds even across runner restarts and concurrent matchmaker/runner
// confusion (invariant 4).
func (r *Runner) finalize(ctx context.Context, game model.Game) error {
	got, err := r.Store.AcquireLock(ctx, store.FinishLockKey(game.ID), r.Cfg.FinishLockTTL)
	if err != nil {
		return err
	}
	if !got {
		// Another runner is finalizing (or already has); yield.
		delete(r.tracked, game.ID)
		return nil
	}

	// Re-read the game under the lock: a racing finalizer may have already
	// flipped it to FINISHED between our liveness check and the lock grab.
	// A missing record under the lock is treated the same as FINISHED rather
	// than recreated — the core never deletes game records, so its absence
	// here means another finalizer already completed and something else
	// cleaned up behind it; recreating it would publish a spurious
	// match_ended with an empty player set.
	fields, err := r.Store.HGetAllMap(ctx, store.GameKey(game.ID))
	if err != nil {
		return err
	}
	fresh, ok := model.GameFromFields(game.ID, fields)
	if !ok || fresh.State == model.GameFinished {
		delete(r.tracked, game.ID)
		return nil
	}

	playerIDs, err := r.Store.SMembers(ctx, store.GamePlayersKey(game.ID))
	if err != nil {
		return err
	}

	now := time.Now()
	finished := game
	finished.State = model.GameFinished
	finished.FinishedAt = now

	pipe := r.Store.Client.TxPipeline()
	pipe.HSet(ctx, store.GameKey(game.ID), finished.ToFields())

	for _, playerID := range playerIDs {
		p := model.Player{
			ID:          playerID,
			State:       model.StateInLobby,
			HeartbeatAt: now,
		}
		pipe.HSet(ctx, store.PlayerKey(playerID), p.ToFields())
		pipe.Expire(ctx, store.PlayerKey(playerID), r.Cfg.PlayerTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if err := r.detachGame(ctx, game.ID); err != nil {
		return err
	}

	delete(r.tracked, game.ID)

	return r.Publisher.PublishMatchEnded(ctx, events.MatchEnded{
		GameID:    game.ID,
		SessionID: game.SessionID,
		PlayerIDs: playerIDs,
	})
}

// detachGame removes gameID from this session's accounting and republishes
// availability, completing the inverse of matchmaker.attachGame.
func (r *Runner) detachGame(ctx context.Context, gameID string) error {
	fields, err := r.Store.HGetAllMap(ctx, store.SessionKey(r.SessionID))
	if err != nil {
		return err
	}
	sess, ok := model.SessionFromFields(r.SessionID, fields)
	if !ok {
		sess = model.Session{ID: r.SessionID, MaxSlots: r.MaxSlots}
	}

	sess.RemoveGame(gameID)

	return r.publishAvailability(ctx, sess)
}
