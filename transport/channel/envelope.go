package channel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Channel protocol event names. The phx_* events are the multiplexing
// lifecycle; the rest are coworking domain events carried on a topic.
const (
	EventJoin          = "phx_join"
	EventLeave         = "phx_leave"
	EventReply         = "phx_reply"
	EventClose         = "phx_close"
	EventCreateSession = "create_session"
	EventJoinSession   = "join_session"
	EventLobbyUpdate   = "lobby_update"
)

var ErrEmptyTopic = errors.New("envelope topic is empty")

// Envelope is the wire message unit exchanged on the channel. Ref
// correlates replies to requests when present; server-initiated pushes
// arrive without one.
type Envelope struct {
	Topic   string         `json:"topic"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
	Ref     string         `json:"ref,omitempty"`
}

// Encode serializes the envelope to a single JSON text frame.
func (e Envelope) Encode() ([]byte, error) {
	if e.Topic == "" {
		return nil, ErrEmptyTopic
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return json.Marshal(e)
}

// DecodeEnvelope parses an inbound text frame. A frame that is not a JSON
// object with a non-empty topic is a protocol error.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Topic == "" {
		return Envelope{}, ErrEmptyTopic
	}
	if env.Payload == nil {
		env.Payload = map[string]any{}
	}
	return env, nil
}
