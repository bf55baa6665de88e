// Package events implements the two publish-only topics of §3/§6:
// events:match_found and events:match_ended. Publication goes to the
// coordination store's own pub/sub first (the primitive gateways actually
// subscribe to) and is best-effort mirrored to a NATS Streaming channel for
// the out-of-scope observability façade, following the teacher's own
// ForwardProduce pipeline in manager.go.
package events

import (
	"context"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/stan.go"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sandwich-match/arena/internal/store"
)

// DialStreaming connects to NATS and then NATS Streaming, mirroring the
// teacher's own ForwardProduce dial sequence in manager.go. A dial failure
// here is non-fatal to the caller: the NATS mirror is best-effort, so
// callers typically log and continue with a nil stan.Conn.
func DialStreaming(natsAddress, clusterID, clientID string) (stan.Conn, error) {
	nc, err := nats.Connect(natsAddress)
	if err != nil {
		return nil, err
	}

	sc, err := stan.Connect(clusterID, clientID, stan.NatsConn(nc))
	if err != nil {
		nc.Close()
		return nil, err
	}

	return sc, nil
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// MatchFound is published when the matchmaker materializes a new game.
type MatchFound struct {
	GameID    string   `json:"game_id" msgpack:"game_id"`
	SessionID string   `json:"session_id" msgpack:"session_id"`
	PlayerIDs []string `json:"player_ids" msgpack:"player_ids"`
}

// MatchEnded is published when the session runner finalizes a game.
type MatchEnded struct {
	GameID    string   `json:"game_id" msgpack:"game_id"`
	SessionID string   `json:"session_id" msgpack:"session_id"`
	PlayerIDs []string `json:"player_ids" msgpack:"player_ids"`
}

// StreamEnvelope is the shape mirrored onto NATS Streaming, matching the
// teacher's StreamEvent{Type, Data} envelope in events.go.
type StreamEnvelope struct {
	Type string      `msgpack:"type"`
	Data interface{} `msgpack:"data"`
}

// Publisher fans out match lifecycle events. It owns no state beyond the
// connections it was handed; it never decides policy.
type Publisher struct {
	store *store.Store
	stan  stan.Conn // nil when no NATS mirror is configured
	topic string
	log   zerolog.Logger
}

// NewPublisher builds a publisher. stanConn may be nil to disable the NATS
// mirror entirely (e.g. in tests).
func NewPublisher(st *store.Store, stanConn stan.Conn, natsChannel string, log zerolog.Logger) *Publisher {
	return &Publisher{store: st, stan: stanConn, topic: natsChannel, log: log}
}

// PublishMatchFound publishes to events:match_found.
func (p *Publisher) PublishMatchFound(ctx context.Context, ev MatchFound) error {
	return p.publish(ctx, store.TopicMatchFound, "match_found", ev)
}

// PublishMatchEnded publishes to events:match_ended.
func (p *Publisher) PublishMatchEnded(ctx context.Context, ev MatchEnded) error {
	return p.publish(ctx, store.TopicMatchEnded, "match_ended", ev)
}

func (p *Publisher) publish(ctx context.Context, topic, kind string, payload interface{}) error {
	raw, err := jsonAPI.Marshal(payload)
	if err != nil {
		return err
	}

	if err := p.store.Publish(ctx, topic, raw); err != nil {
		return err
	}

	p.mirror(kind, payload)
	return nil
}

// mirror is best-effort: a NATS outage must never block the coordination
// path, only be logged, matching §7's transient-store handling philosophy
// extended to this external collaborator.
func (p *Publisher) mirror(kind string, payload interface{}) {
	if p.stan == nil {
		return
	}

	env := StreamEnvelope{Type: kind, Data: payload}
	raw, err := msgpack.Marshal(env)
	if err != nil {
		p.log.Warn().Err(err).Str("type", kind).Msg("failed to marshal stream envelope")
		return
	}

	if err := p.stan.Publish(p.topic, raw); err != nil {
		p.log.Warn().Err(err).Str("type", kind).Msg("failed to mirror event to nats streaming")
	}
}

// DecodeMatchFound decodes a raw pub/sub payload, used by gateway
// subscribers.
func DecodeMatchFound(raw []byte) (MatchFound, error) {
	var ev MatchFound
	err := json.Unmarshal(raw, &ev)
	return ev, err
}

// DecodeMatchEnded decodes a raw pub/sub payload.
func DecodeMatchEnded(raw []byte) (MatchEnded, error) {
	var ev MatchEnded
	err := json.Unmarshal(raw, &ev)
	return ev, err
}
