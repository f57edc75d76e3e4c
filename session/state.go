package session

import "github.com/cowork-labs/cowork-core/service"

// Phase is the membership sub-state of the client.
type Phase string

const (
	PhaseDisconnected  Phase = "disconnected"
	PhaseConnecting    Phase = "connecting"
	PhaseLobbyJoined   Phase = "lobby_joined"
	PhaseSessionJoined Phase = "session_joined"
)

// Mode is the local-only UI mode. It is never synchronized to the server.
type Mode string

const (
	ModeLounge   Mode = "lounge"
	ModePomodoro Mode = "pomodoro"
	ModeFocus    Mode = "focus"
)

// Snapshot is an immutable view of the session state, published to
// observers after every change. Slices and the session record are copies;
// holding a snapshot never aliases coordinator-owned memory.
type Snapshot struct {
	Phase Phase

	// IsConnected is transport-level liveness (last probe succeeded). It
	// carries no information about topic membership.
	IsConnected bool

	// HasJoinedSession is true once the session topic join was acknowledged.
	HasJoinedSession bool

	CurrentSession      *service.Session
	CurrentSessionUsers []service.User
	AvailableSessions   []service.Session
	SelectedMode        Mode
}

// state is the single mutable aggregate. It is owned exclusively by the
// coordinator's run loop; nothing outside the loop reads or writes it.
type state struct {
	phase            Phase
	isConnected      bool
	hasJoinedSession bool
	currentSession   *service.Session
	currentUsers     []service.User
	available        []service.Session
	mode             Mode
}

func newState() state {
	return state{phase: PhaseDisconnected, mode: ModeLounge}
}

func (s *state) snapshot() Snapshot {
	return Snapshot{
		Phase:               s.phase,
		IsConnected:         s.isConnected,
		HasJoinedSession:    s.hasJoinedSession,
		CurrentSession:      s.currentSession.Clone(),
		CurrentSessionUsers: append([]service.User(nil), s.currentUsers...),
		AvailableSessions:   append([]service.Session(nil), s.available...),
		SelectedMode:        s.mode,
	}
}

// clearMembership drops session membership without touching connectivity
// or the lobby directory.
func (s *state) clearMembership() {
	s.hasJoinedSession = false
	s.currentSession = nil
	s.currentUsers = nil
}
