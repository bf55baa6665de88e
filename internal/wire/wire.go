// Package wire defines the client<->gateway message frames of §6. Frames
// are JSON, encoded with json-iterator exactly as the teacher's client
// package aliases it.
package wire

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the outer shape every frame arrives and leaves in: a type tag
// plus a raw payload decoded per-type.
type Envelope struct {
	Type string              `json:"type"`
	Data jsoniter.RawMessage `json:"data,omitempty"`
}

// Client -> server message types.
const (
	TypeHello     = "HELLO"
	TypeReadyUp   = "READY_UP"
	TypeUnready   = "UNREADY"
	TypeHeartbeat = "HEARTBEAT"
	TypeLeave     = "LEAVE"
)

// Server -> client message types.
const (
	TypeWelcome    = "WELCOME"
	TypeState      = "STATE"
	TypeMatchFound = "MATCH_FOUND"
	TypeMatchEnded = "MATCH_ENDED"
	TypeError      = "ERROR"
)

// HelloPayload is the optional client-supplied identity on HELLO.
type HelloPayload struct {
	PlayerID string `json:"player_id,omitempty"`
}

// WelcomePayload confirms the assigned identity.
type WelcomePayload struct {
	PlayerID string `json:"player_id"`
}

// StatePayload announces the player's current lobby state.
type StatePayload struct {
	State string `json:"state"`
}

// MatchFoundPayload announces placement.
type MatchFoundPayload struct {
	GameID    string `json:"game_id"`
	SessionID string `json:"session_id"`
}

// MatchEndedPayload announces release.
type MatchEndedPayload struct {
	GameID    string `json:"game_id"`
	SessionID string `json:"session_id"`
}

// Error codes (§6: "Unknown message types yield an ERROR with code
// UNKNOWN").
const (
	ErrCodeUnknown   = "UNKNOWN"
	ErrCodeMalformed = "MALFORMED"
	ErrCodeNoHello   = "NO_HELLO"
)

// ErrorPayload carries a machine-readable code and a human message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals a typed payload into an outbound Envelope.
func Encode(msgType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Data: raw}, nil
}

// Marshal renders an Envelope to bytes ready for the websocket.
func Marshal(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an inbound frame into its Envelope.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(raw, &e)
	return e, err
}

// UnmarshalData decodes an Envelope's raw Data into a typed payload.
func UnmarshalData(raw jsoniter.RawMessage, target interface{}) error {
	return json.Unmarshal(raw, target)
}
