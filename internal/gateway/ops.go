package gateway

import (
	"context"
	"time"

	"github.com/sandwich-match/arena/internal/model"
	"github.com/sandwich-match/arena/internal/store"
)

// writeLobbyState implements HELLO (§4.1): create player:{id} with
// state=IN_LOBBY, respecting the monotone-state rule so a reconnecting
// player who was already READY or IN_GAME is not clobbered back to lobby.
func (g *Gateway) writeLobbyState(ctx context.Context, playerID string) error {
	current, err := g.readPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	if !model.AllowsLobbyDowngrade(current.State) {
		// Already READY/IN_GAME: just refresh the heartbeat, never downgrade.
		return g.refreshHeartbeat(ctx, playerID)
	}

	p := model.Player{ID: playerID, State: model.StateInLobby, HeartbeatAt: time.Now()}
	return g.Store.HSetFields(ctx, store.PlayerKey(playerID), p.ToFields(), g.Cfg.PlayerTTL)
}

// setReady implements READY_UP: flips state to READY and appends to the
// ready queue. Repeated calls intentionally produce duplicate queue
// entries; the matchmaker's batching algorithm and the reaper both treat
// the queue as a set of hints, not a set of unique IDs (§4.1, §4.2.1).
func (g *Gateway) setReady(ctx context.Context, playerID string) error {
	p := model.Player{ID: playerID, State: model.StateReady, HeartbeatAt: time.Now()}
	if err := g.Store.HSetFields(ctx, store.PlayerKey(playerID), p.ToFields(), g.Cfg.PlayerTTL); err != nil {
		return err
	}
	return g.Store.PushTail(ctx, store.ReadyQueueKey, playerID)
}

// setUnready implements UNREADY: flips state back to IN_LOBBY. Removal
// from the queue is lazy, per §4.1 — the matchmaker and reaper both
// tolerate a stale hint.
func (g *Gateway) setUnready(ctx context.Context, playerID string) error {
	current, err := g.readPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	p := model.Player{
		ID:          playerID,
		State:       model.StateInLobby,
		HeartbeatAt: time.Now(),
		GameID:      current.GameID,
		SessionID:   current.SessionID,
	}
	return g.Store.HSetFields(ctx, store.PlayerKey(playerID), p.ToFields(), g.Cfg.PlayerTTL)
}

// refreshHeartbeat implements HEARTBEAT: bumps heartbeat_at, re-creating
// the record in IN_LOBBY if it's missing (race with HELLO or TTL expiry).
func (g *Gateway) refreshHeartbeat(ctx context.Context, playerID string) error {
	current, err := g.readPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	state := current.State
	if state == "" {
		state = model.StateInLobby
	}

	p := model.Player{
		ID:          playerID,
		State:       state,
		HeartbeatAt: time.Now(),
		GameID:      current.GameID,
		SessionID:   current.SessionID,
	}
	return g.Store.HSetFields(ctx, store.PlayerKey(playerID), p.ToFields(), g.Cfg.PlayerTTL)
}

// monotoneLobby implements the LEAVE/disconnect write: sets IN_LOBBY but
// never downgrades a player already READY or IN_GAME (invariant 6).
func (g *Gateway) monotoneLobby(ctx context.Context, playerID string) error {
	current, err := g.readPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	if !model.AllowsLobbyDowngrade(current.State) {
		return nil
	}

	p := model.Player{ID: playerID, State: model.StateInLobby, HeartbeatAt: time.Now()}
	return g.Store.HSetFields(ctx, store.PlayerKey(playerID), p.ToFields(), g.Cfg.PlayerTTL)
}

func (g *Gateway) readPlayer(ctx context.Context, playerID string) (model.Player, error) {
	fields, err := g.Store.HGetAllMap(ctx, store.PlayerKey(playerID))
	if err != nil {
		return model.Player{}, err
	}
	p, _ := model.PlayerFromFields(playerID, fields)
	return p, nil
}
