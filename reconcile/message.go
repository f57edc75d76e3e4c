package reconcile

import (
	"github.com/cowork-labs/cowork-core/service"
	"github.com/cowork-labs/cowork-core/transport/channel"
)

// Kind identifies one of the closed set of reconciled message kinds.
type Kind string

const (
	KindJoinAck            Kind = "join_ack"
	KindCloseAck           Kind = "close_ack"
	KindSessionDescribed   Kind = "session_described"
	KindLobbyRosterUpdated Kind = "lobby_roster_updated"
	KindErrorReported      Kind = "error_reported"
	KindUnrecognized       Kind = "unrecognized"
)

// Message is a decoded variant of an incoming envelope. The set of
// implementations is closed; consumers switch on the concrete type.
type Message interface {
	Kind() Kind
}

// JoinAck is a successful reply to a join or domain request on a topic.
type JoinAck struct {
	Topic string
	Ref   string
}

// CloseAck acknowledges that the server closed a topic.
type CloseAck struct {
	Topic string
}

// SessionDescribed carries the full session record returned after a
// create/join round trip, with typed-value wrappers already unwrapped and
// the id resolved from the fully-qualified resource name.
type SessionDescribed struct {
	Topic   string
	Ref     string
	Session service.Session
}

// LobbyRosterUpdated carries the user ids currently present in a session.
type LobbyRosterUpdated struct {
	Topic   string
	UserIDs []string
}

// ErrorReported is a server-signaled failure, e.g. session not found.
type ErrorReported struct {
	Topic  string
	Ref    string
	Reason string
}

// Unrecognized is the fallback for payloads that match no known shape.
// It is logged and never changes state.
type Unrecognized struct {
	Envelope channel.Envelope
}

func (JoinAck) Kind() Kind            { return KindJoinAck }
func (CloseAck) Kind() Kind           { return KindCloseAck }
func (SessionDescribed) Kind() Kind   { return KindSessionDescribed }
func (LobbyRosterUpdated) Kind() Kind { return KindLobbyRosterUpdated }
func (ErrorReported) Kind() Kind      { return KindErrorReported }
func (Unrecognized) Kind() Kind       { return KindUnrecognized }
