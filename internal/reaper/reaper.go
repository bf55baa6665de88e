// Package reaper implements the §4.4 background sweeper: queue hygiene and
// player hygiene, both safe to run concurrently with every other role.
package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// Reaper runs both hygiene passes on a fixed period.
type Reaper struct {
	Store *store.Store
	Cfg   config.Config
	log   zerolog.Logger
}

// New builds a Reaper.
func New(st *store.Store, cfg config.Config, log zerolog.Logger) *Reaper {
	return &Reaper{Store: st, Cfg: cfg, log: log}
}

// Run loops forever at Cfg.ReaperPeriod until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Cfg.ReaperPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepQueue(ctx)
			r.sweepPlayers(ctx)
		}
	}
}

// sweepQueue implements §4.4's "Queue hygiene" pass: snapshot the ready
// queue, drop any ID whose state isn't READY or whose heartbeat is stale,
// using a value-based delete to avoid positional drift while other roles
// mutate the same list concurrently.
func (r *Reaper) sweepQueue(ctx context.Context) {
	ids, err := r.Store.Snapshot(ctx, store.ReadyQueueKey)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to snapshot ready queue")
		return
	}

	now := time.Now()
	for _, id := range ids {
		fields, err := r.Store.HGetAllMap(ctx, store.PlayerKey(id))
		if err != nil {
			r.log.Warn().Err(err).Str("player", id).Msg("failed to read player during queue sweep")
			continue
		}

		p, ok := model.PlayerFromFields(id, fields)
		if !ok || p.State != model.StateReady || p.IsStale(now, r.Cfg.StaleDuration) {
			if err := r.Store.RemoveValue(ctx, store.ReadyQueueKey, id); err != nil {
				r.log.Warn().Err(err).Str("player", id).Msg("failed to remove stale queue entry")
			}
		}
	}
}

// sweepPlayers implements §4.4's "Player hygiene" pass: scan player:*
// incrementally and reset any player whose heartbeat is stale back to
// IN_LOBBY, also removing them from the ready queue.
//
// Players in active games are allowed stale heartbeats while their
// session runner is responsible for them; by default this pass still
// resets their lobby fields, since the runner overwrites on finish
// (§4.4). When Cfg.SkipReapInGame is set, IN_GAME players are left alone
// instead, resolving the open question in §9 as a configurable toggle.
func (r *Reaper) sweepPlayers(ctx context.Context) {
	scanner := r.Store.NewScanner(store.PlayerScanPattern)
	now := time.Now()

	for {
		keys, ok, err := scanner.Next(ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to scan players")
			return
		}
		if !ok {
			return
		}

		for _, key := range keys {
			id := playerIDFromKey(key)
			fields, err := r.Store.HGetAllMap(ctx, key)
			if err != nil {
				r.log.Warn().Err(err).Str("player", id).Msg("failed to read player during hygiene sweep")
				continue
			}

			p, ok := model.PlayerFromFields(id, fields)
			if !ok || !p.IsStale(now, r.Cfg.StaleDuration) {
				continue
			}

			if r.Cfg.SkipReapInGame && p.State == model.StateInGame {
				continue
			}

			if err := r.Store.RemoveValue(ctx, store.ReadyQueueKey, id); err != nil {
				r.log.Warn().Err(err).Str("player", id).Msg("failed to remove reaped player from queue")
			}

			reset := model.Player{
				ID:          id,
				State:       model.StateInLobby,
				HeartbeatAt: now,
			}
			if err := r.Store.HSetFields(ctx, key, reset.ToFields(), r.Cfg.PlayerTTL); err != nil {
				r.log.Warn().Err(err).Str("player", id).Msg("failed to reset stale player")
			}
		}
	}
}

func playerIDFromKey(key string) string {
	const prefix = "player:"
	if len(key) > len(prefix) {
		return key[len(prefix):]
	}
	return key
}
