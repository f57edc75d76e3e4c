package session

import (
	"github.com/google/uuid"

	"github.com/cowork-labs/cowork-core/transport/channel"
)

// multiplexer tracks which topics are currently joined and translates
// high-level intents into envelopes with correct topic/event/ref stamping.
// It is owned by the coordinator's run loop and is not safe for concurrent
// use on its own.
type multiplexer struct {
	transport Transport
	joined    map[string]bool
}

func newMultiplexer(transport Transport) *multiplexer {
	return &multiplexer{
		transport: transport,
		joined:    make(map[string]bool),
	}
}

// join sends phx_join and records membership. Returns the ref stamped on
// the request, or "" if the topic was already joined (no frame emitted).
func (m *multiplexer) join(topic string) string {
	if m.joined[topic] {
		return ""
	}
	ref := uuid.NewString()
	m.transport.Send(channel.Envelope{
		Topic:   topic,
		Event:   channel.EventJoin,
		Payload: map[string]any{},
		Ref:     ref,
	})
	m.joined[topic] = true
	return ref
}

// leave sends phx_leave and drops membership. Leaving a topic that is not
// joined emits no frame; leave is idempotent.
func (m *multiplexer) leave(topic string) bool {
	if !m.joined[topic] {
		return false
	}
	m.transport.Send(channel.Envelope{
		Topic:   topic,
		Event:   channel.EventLeave,
		Payload: map[string]any{},
		Ref:     uuid.NewString(),
	})
	delete(m.joined, topic)
	return true
}

// push sends a domain event on a topic and returns the stamped ref.
func (m *multiplexer) push(topic, event string, payload map[string]any) string {
	if payload == nil {
		payload = map[string]any{}
	}
	ref := uuid.NewString()
	m.transport.Send(channel.Envelope{
		Topic:   topic,
		Event:   event,
		Payload: payload,
		Ref:     ref,
	})
	return ref
}

// switchToSession performs the compound lobby-to-session switch: leave the
// lobby (and any previously joined session topic), join the new session
// topic, then announce membership with join_session. The leave must precede
// the join so servers keyed by topic membership never see duplicates.
func (m *multiplexer) switchToSession(sessionID, userID string) string {
	m.leave(channel.LobbyTopic)
	for topic := range m.joined {
		if channel.SessionIDFromTopic(topic) != "" {
			m.leave(topic)
		}
	}

	topic := channel.SessionTopic(sessionID)
	m.join(topic)
	return m.push(topic, channel.EventJoinSession, map[string]any{"user_id": userID})
}

// drop forgets membership for a topic without emitting a frame. Used when
// the server closed or rejected the topic on its side.
func (m *multiplexer) drop(topic string) {
	delete(m.joined, topic)
}

// isJoined reports current membership for a topic.
func (m *multiplexer) isJoined(topic string) bool {
	return m.joined[topic]
}

// reset forgets all membership. Used when the transport connection is gone;
// server-side membership lapsed with it.
func (m *multiplexer) reset() {
	m.joined = make(map[string]bool)
}
