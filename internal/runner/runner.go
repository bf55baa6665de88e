// Package runner implements the §4.3 session-runner role: one process
// represents one session:{id} with max_slots concurrent game capacity.
package runner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/events"
	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// Runner owns zero or more locally-tracked games for one session ID.
type Runner struct {
	Store     *store.Store
	Publisher *events.Publisher
	Cfg       config.Config
	SessionID string
	MaxSlots  int

	tracked map[string]struct{} // game IDs this process currently watches
	log     zerolog.Logger
}

// New builds a Runner for sessionID with the given slot capacity.
func New(st *store.Store, pub *events.Publisher, cfg config.Config, sessionID string, maxSlots int, log zerolog.Logger) *Runner {
	return &Runner{
		Store:     st,
		Publisher: pub,
		Cfg:       cfg,
		SessionID: sessionID,
		MaxSlots:  maxSlots,
		tracked:   make(map[string]struct{}),
		log:       log,
	}
}

// Start performs crash recovery on an existing session record, if any, and
// publishes availability, per §4.3 "On start".
func (r *Runner) Start(ctx context.Context) error {
	fields, err := r.Store.HGetAllMap(ctx, store.SessionKey(r.SessionID))
	if err != nil {
		return err
	}

	sess, ok := model.SessionFromFields(r.SessionID, fields)
	if !ok {
		sess = model.Session{ID: r.SessionID, MaxSlots: r.MaxSlots}
		sess.Recompute()
	} else {
		r.MaxSlots = sess.MaxSlots
	}

	// Re-adopt any RUNNING game already listed against this session — this
	// is how a crashed runner resumes ownership on restart.
	for _, gameID := range sess.GameIDs {
		if gameID == "" {
			continue
		}
		gFields, err := r.Store.HGetAllMap(ctx, store.GameKey(gameID))
		if err != nil {
			r.log.Warn().Err(err).Str("game", gameID).Msg("failed to read game during recovery")
			continue
		}
		game, ok := model.GameFromFields(gameID, gFields)
		if ok && game.State == model.GameRunning {
			r.tracked[gameID] = struct{}{}
		}
	}

	return r.publishAvailability(ctx, sess)
}

// Run loops forever at Cfg.SessionPollPeriod until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Cfg.SessionPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				r.log.Warn().Err(err).Msg("session runner tick failed")
			}
		}
	}
}

// tick performs one discovery + liveness pass (§4.3 main loop).
func (r *Runner) tick(ctx context.Context) error {
	fields, err := r.Store.HGetAllMap(ctx, store.SessionKey(r.SessionID))
	if err != nil {
		return err
	}
	sess, ok := model.SessionFromFields(r.SessionID, fields)
	if !ok {
		sess = model.Session{ID: r.SessionID, MaxSlots: r.MaxSlots}
		sess.Recompute()
	}

	// Discovery: adopt any game listed but not locally tracked. This is how
	// the matchmaker hands a freshly materialized game off to this runner.
	for _, gameID := range sess.GameIDs {
		if gameID == "" {
			continue
		}
		if _, already := r.tracked[gameID]; !already {
			r.tracked[gameID] = struct{}{}
		}
	}

	now := time.Now()
	for gameID := range r.tracked {
		if err := r.checkGame(ctx, gameID, now); err != nil {
			r.log.Warn().Err(err).Str("game", gameID).Msg("failed checking game liveness")
		}
	}

	return nil
}

// checkGame implements the per-game liveness check of §4.3 step 2.
func (r *Runner) checkGame(ctx context.Context, gameID string, now time.Time) error {
	fields, err := r.Store.HGetAllMap(ctx, store.GameKey(gameID))
	if err != nil {
		return err
	}

	game, ok := model.GameFromFields(gameID, fields)
	if !ok || game.State == model.GameFinished {
		// Missing, FINISHED, or malformed: drop locally and republish
		// availability, since this runner no longer considers it active.
		delete(r.tracked, gameID)
		return r.refreshAvailability(ctx)
	}

	if game.ShouldFinalize(now) {
		return r.finalize(ctx, game)
	}

	return nil
}

// refreshAvailability re-reads the session record and republishes it,
// used whenever a locally tracked game disappears out from under this
// runner without going through finalize (e.g. a stale/missing record).
func (r *Runner) refreshAvailability(ctx context.Context) error {
	fields, err := r.Store.HGetAllMap(ctx, store.SessionKey(r.SessionID))
	if err != nil {
		return err
	}
	sess, ok := model.SessionFromFields(r.SessionID, fields)
	if !ok {
		sess = model.Session{ID: r.SessionID, MaxSlots: r.MaxSlots}
		sess.Recompute()
	}
	return r.publishAvailability(ctx, sess)
}

// publishAvailability writes session:{id}'s slot fields and syncs
// sessions:available, per §4.3 "Availability publication".
func (r *Runner) publishAvailability(ctx context.Context, sess model.Session) error {
	sess.UpdatedAt = time.Now()
	sess.Recompute()

	if err := r.Store.HSetFields(ctx, store.SessionKey(sess.ID), sess.ToFields(), 0); err != nil {
		return err
	}

	if sess.AvailableSlots > 0 {
		return r.Store.ZUpsert(ctx, store.AvailableSessionsKey, sess.ID, float64(sess.AvailableSlots))
	}
	return r.Store.ZRemove(ctx, store.AvailableSessionsKey, sess.ID)
}
