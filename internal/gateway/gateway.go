// Package gateway implements the §4.1 role: it accepts long-lived
// bidirectional player connections, serializes per-connection message
// handling, and forwards match lifecycle events back to connected players.
package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/events"
	"github.com/sandwich-match/arena/internal/store"
)

// upgrader follows the teacher's header-driven dial style in spirit: a
// permissive same-process upgrader, since origin policy belongs to the
// out-of-scope HTTP façade in front of this service.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway owns every locally-connected player and subscribes to the two
// match lifecycle topics to forward them.
type Gateway struct {
	Store *store.Store
	Cfg   config.Config
	log   zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*Connection // playerID -> connection
}

// New builds a Gateway.
func New(st *store.Store, cfg config.Config, log zerolog.Logger) *Gateway {
	return &Gateway{
		Store: st,
		Cfg:   cfg,
		log:   log,
		conns: make(map[string]*Connection),
	}
}

// ServeHTTP upgrades an incoming request to a websocket and runs the
// connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	conn := newConnection(g, ws)
	conn.run(r.Context())
}

// register binds a playerID to a connection once HELLO completes,
// overwriting any prior connection under the same ID (a reconnect).
func (g *Gateway) register(playerID string, c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[playerID] = c
}

// unregister drops the local identity map entry for a closing connection,
// only if it still points at that exact connection (a newer reconnect may
// have already replaced it).
func (g *Gateway) unregister(playerID string, c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.conns[playerID]; ok && existing == c {
		delete(g.conns, playerID)
	}
}

// connectionFor looks up a locally-connected player, used by event
// forwarding.
func (g *Gateway) connectionFor(playerID string) (*Connection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.conns[playerID]
	return c, ok
}

// RunEventForwarding subscribes to events:match_found/events:match_ended
// and forwards each event to any locally-connected players in its
// player_ids list. Delivery is best-effort; players connected to a
// different gateway instance are silently skipped (§4.1).
func (g *Gateway) RunEventForwarding(ctx context.Context) {
	sub := g.Store.Subscribe(ctx, store.TopicMatchFound, store.TopicMatchEnded)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			g.handleTopicMessage(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (g *Gateway) handleTopicMessage(channel string, payload []byte) {
	switch channel {
	case store.TopicMatchFound:
		ev, err := events.DecodeMatchFound(payload)
		if err != nil {
			g.log.Warn().Err(err).Msg("failed to decode match_found event")
			return
		}
		for _, playerID := range ev.PlayerIDs {
			if c, ok := g.connectionFor(playerID); ok {
				c.sendMatchFound(ev.GameID, ev.SessionID)
			}
		}
	case store.TopicMatchEnded:
		ev, err := events.DecodeMatchEnded(payload)
		if err != nil {
			g.log.Warn().Err(err).Msg("failed to decode match_ended event")
			return
		}
		for _, playerID := range ev.PlayerIDs {
			if c, ok := g.connectionFor(playerID); ok {
				c.sendMatchEnded(ev.GameID, ev.SessionID)
			}
		}
	}
}
