package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandwich-match/arena/internal/ids"
	"github.com/sandwich-match/arena/internal/wire"
)

// Connection owns one player's websocket. Per §5, every store call is a
// suspension point and handlers must be serialized per-connection to avoid
// intra-connection races (e.g. HELLO/HEARTBEAT ordering); pending carries
// decoded frames from the read loop to a single handler goroutine that
// drains them strictly in order, the FIFO §5 describes.
type Connection struct {
	gw *Gateway
	ws *websocket.Conn

	writeMu sync.Mutex

	playerID string
	pending  chan wire.Envelope
}

func newConnection(gw *Gateway, ws *websocket.Conn) *Connection {
	return &Connection{
		gw:      gw,
		ws:      ws,
		pending: make(chan wire.Envelope, 64),
	}
}

// run drives the connection until it closes: a read goroutine decodes
// frames onto pending, while this goroutine both enforces the HELLO
// deadline and serially handles each frame.
func (c *Connection) run(ctx context.Context) {
	defer c.close()

	readErrs := make(chan error, 1)
	go c.readLoop(readErrs)

	helloDeadline := time.NewTimer(c.gw.Cfg.HelloTimeout)
	defer helloDeadline.Stop()

	helloReceived := false

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErrs:
			_ = err
			return
		case <-helloDeadline.C:
			if !helloReceived {
				c.sendError(wire.ErrCodeNoHello, "HELLO was not received within the handshake window")
				return
			}
		case env, ok := <-c.pending:
			if !ok {
				return
			}
			if !helloReceived && env.Type != wire.TypeHello {
				c.sendError(wire.ErrCodeNoHello, "HELLO must be the first message")
				continue
			}
			c.handle(ctx, env)
			if env.Type == wire.TypeHello {
				helloReceived = true
			}
			if env.Type == wire.TypeLeave {
				return
			}
		}
	}
}

func (c *Connection) readLoop(errs chan<- error) {
	defer close(c.pending)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			errs <- err
			return
		}

		env, err := wire.Decode(raw)
		if err != nil {
			c.sendError(wire.ErrCodeMalformed, "could not parse frame")
			continue
		}

		c.pending <- env
	}
}

// handle dispatches one decoded frame to its operation, all of which are
// idempotent over the store per §4.1.
func (c *Connection) handle(ctx context.Context, env wire.Envelope) {
	switch env.Type {
	case wire.TypeHello:
		c.onHello(ctx, env)
	case wire.TypeReadyUp:
		c.onReadyUp(ctx)
	case wire.TypeUnready:
		c.onUnready(ctx)
	case wire.TypeHeartbeat:
		c.onHeartbeat(ctx)
	case wire.TypeLeave:
		c.onLeave(ctx)
	default:
		c.sendError(wire.ErrCodeUnknown, "unrecognised message type: "+env.Type)
	}
}

func (c *Connection) onHello(ctx context.Context, env wire.Envelope) {
	var payload wire.HelloPayload
	if len(env.Data) > 0 {
		_ = wire.UnmarshalData(env.Data, &payload)
	}

	playerID := payload.PlayerID
	if playerID == "" {
		playerID = ids.New()
	}
	c.playerID = playerID

	if err := c.gw.writeLobbyState(ctx, playerID); err != nil {
		c.gw.log.Warn().Err(err).Str("player", playerID).Msg("store error on HELLO")
	}

	c.gw.register(playerID, c)

	c.send(wire.TypeWelcome, wire.WelcomePayload{PlayerID: playerID})
	c.send(wire.TypeState, wire.StatePayload{State: "IN_LOBBY"})
}

func (c *Connection) onReadyUp(ctx context.Context) {
	if err := c.gw.setReady(ctx, c.playerID); err != nil {
		c.gw.log.Warn().Err(err).Str("player", c.playerID).Msg("store error on READY_UP")
		return
	}
	c.send(wire.TypeState, wire.StatePayload{State: "READY"})
}

func (c *Connection) onUnready(ctx context.Context) {
	if err := c.gw.setUnready(ctx, c.playerID); err != nil {
		c.gw.log.Warn().Err(err).Str("player", c.playerID).Msg("store error on UNREADY")
		return
	}
	c.send(wire.TypeState, wire.StatePayload{State: "IN_LOBBY"})
}

func (c *Connection) onHeartbeat(ctx context.Context) {
	if err := c.gw.refreshHeartbeat(ctx, c.playerID); err != nil {
		c.gw.log.Warn().Err(err).Str("player", c.playerID).Msg("store error on HEARTBEAT")
	}
}

func (c *Connection) onLeave(ctx context.Context) {
	if err := c.gw.monotoneLobby(ctx, c.playerID); err != nil {
		c.gw.log.Warn().Err(err).Str("player", c.playerID).Msg("store error on LEAVE")
	}
}

// close runs on every exit path from run(): per §4.1's failure semantics,
// the connection writes IN_LOBBY (monotone) and drops its local identity.
func (c *Connection) close() {
	if c.playerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.gw.monotoneLobby(ctx, c.playerID); err != nil {
			c.gw.log.Warn().Err(err).Str("player", c.playerID).Msg("store error on disconnect")
		}
		cancel()
		c.gw.unregister(c.playerID, c)
	}
	c.ws.Close()
}

func (c *Connection) sendMatchFound(gameID, sessionID string) {
	c.send(wire.TypeMatchFound, wire.MatchFoundPayload{GameID: gameID, SessionID: sessionID})
	c.send(wire.TypeState, wire.StatePayload{State: "IN_GAME"})
}

func (c *Connection) sendMatchEnded(gameID, sessionID string) {
	c.send(wire.TypeMatchEnded, wire.MatchEndedPayload{GameID: gameID, SessionID: sessionID})
	c.send(wire.TypeState, wire.StatePayload{State: "IN_LOBBY"})
}

func (c *Connection) sendError(code, message string) {
	c.send(wire.TypeError, wire.ErrorPayload{Code: code, Message: message})
}

// send writes one frame, guarded by writeMu so concurrent writers (the
// connection's own handler goroutine and the gateway's event-forwarding
// goroutine) never interleave on the wire, matching the teacher's wsMutex
// around shard writes in session.go.
func (c *Connection) send(msgType string, payload interface{}) {
	env, err := wire.Encode(msgType, payload)
	if err != nil {
		c.gw.log.Warn().Err(err).Str("type", msgType).Msg("failed to encode outbound frame")
		return
	}
	raw, err := wire.Marshal(env)
	if err != nil {
		c.gw.log.Warn().Err(err).Str("type", msgType).Msg("failed to marshal outbound frame")
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		c.gw.log.Debug().Err(err).Str("player", c.playerID).Msg("failed to write frame")
	}
}
