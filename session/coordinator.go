package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/cowork-labs/cowork-core/reconcile"
	"github.com/cowork-labs/cowork-core/service"
	"github.com/cowork-labs/cowork-core/transport/channel"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrMissingCollaborator = errors.New("missing required collaborator")
)

const snapshotBuffer = 16

// Transport is the slice of the channel socket the coordinator drives.
type Transport interface {
	Connect(ctx context.Context, userID, token string) error
	Send(env channel.Envelope)
	Disconnect()
}

// Hooks are the inbound callbacks a transport factory must wire into the
// socket it constructs.
type Hooks struct {
	OnEnvelope     func(channel.Envelope)
	OnConnectivity func(connected bool)
	OnClosed       func()
}

// TransportFactory builds the transport the coordinator will own, wiring
// the given hooks into it. The factory is called exactly once, at
// construction time.
type TransportFactory func(Hooks) Transport

type rosterHydration struct {
	sessionID string
	users     []service.User
	err       error
}

type sessionResolution struct {
	sessionID string
	session   *service.Session
	err       error
}

// Coordinator is the single logical owner of the client session state. All
// mutations are serialized onto one run loop; the transport's receive loop,
// the liveness timer, and hydration round trips hand their results to that
// loop instead of mutating state directly.
type Coordinator struct {
	transport Transport
	identity  service.Identity
	directory service.Directory
	reporter  service.ErrorReporter

	actions       chan func()
	inbound       chan channel.Envelope
	connectivity  chan bool
	transportGone chan struct{}
	hydrated      chan rosterHydration
	resolved      chan sessionResolution
	directoryFeed chan []service.Session

	done      chan struct{}
	closeOnce sync.Once

	runCtx    context.Context
	runCancel context.CancelFunc

	// Everything below is owned by the run loop.
	st               state
	mux              *multiplexer
	subscribers      map[chan Snapshot]bool
	wantConnected    bool
	pendingCreateRef string
	retry            *backoff.Backoff
	retryTimer       *time.Timer
	feedCancel       context.CancelFunc
}

// NewCoordinator assembles a coordinator and starts its run loop. A nil
// factory, identity, or directory is a configuration error; a nil reporter
// defaults to the no-op sink.
func NewCoordinator(factory TransportFactory, identity service.Identity, directory service.Directory, reporter service.ErrorReporter) (*Coordinator, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: transport factory", ErrMissingCollaborator)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: identity", ErrMissingCollaborator)
	}
	if directory == nil {
		return nil, fmt.Errorf("%w: directory", ErrMissingCollaborator)
	}
	if reporter == nil {
		reporter = service.NopReporter{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		identity:      identity,
		directory:     directory,
		reporter:      reporter,
		actions:       make(chan func(), 16),
		inbound:       make(chan channel.Envelope, 64),
		connectivity:  make(chan bool, 16),
		transportGone: make(chan struct{}, 1),
		hydrated:      make(chan rosterHydration, 8),
		resolved:      make(chan sessionResolution, 8),
		directoryFeed: make(chan []service.Session, 8),
		done:          make(chan struct{}),
		runCtx:        ctx,
		runCancel:     cancel,
		st:            newState(),
		subscribers:   make(map[chan Snapshot]bool),
		retry:         &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Jitter: true},
	}

	c.transport = factory(Hooks{
		OnEnvelope:     c.enqueueEnvelope,
		OnConnectivity: c.enqueueConnectivity,
		OnClosed:       c.enqueueTransportGone,
	})
	if c.transport == nil {
		cancel()
		return nil, fmt.Errorf("%w: transport", ErrMissingCollaborator)
	}
	c.mux = newMultiplexer(c.transport)

	go c.run()
	return c, nil
}

// run serializes every state mutation. Inbound frames are applied in
// receipt order; hydration results carry the session id they were issued
// for and are dropped when stale.
func (c *Coordinator) run() {
	for {
		select {
		case fn := <-c.actions:
			fn()
		case env := <-c.inbound:
			c.apply(reconcile.Decode(env))
		case connected := <-c.connectivity:
			c.applyConnectivity(connected)
		case <-c.transportGone:
			c.handleTransportGone()
		case h := <-c.hydrated:
			c.applyHydration(h)
		case r := <-c.resolved:
			c.applyResolution(r)
		case sessions := <-c.directoryFeed:
			c.applyDirectory(sessions)
		case <-c.done:
			for ch := range c.subscribers {
				close(ch)
			}
			c.subscribers = nil
			// Run actions already queued behind the close so a late
			// Subscribe still gets its channel closed.
			for {
				select {
				case fn := <-c.actions:
					fn()
				default:
					return
				}
			}
		}
	}
}

func (c *Coordinator) do(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.done:
	}
}

func (c *Coordinator) enqueueEnvelope(env channel.Envelope) {
	select {
	case c.inbound <- env:
	case <-c.done:
	}
}

func (c *Coordinator) enqueueConnectivity(connected bool) {
	select {
	case c.connectivity <- connected:
	case <-c.done:
	}
}

func (c *Coordinator) enqueueTransportGone() {
	select {
	case c.transportGone <- struct{}{}:
	case <-c.done:
	default:
	}
}

// Connect dials the channel server with the identity's credentials and
// joins the lobby topic once the connection is up.
func (c *Coordinator) Connect() {
	c.do(func() {
		if c.st.phase != PhaseDisconnected {
			return
		}
		c.wantConnected = true
		c.st.phase = PhaseConnecting
		c.publish()
		c.dial()
	})
}

// Disconnect tears the connection down and resets membership. Idempotent.
func (c *Coordinator) Disconnect() {
	c.do(func() {
		c.wantConnected = false
		c.stopRetry()
		c.stopDirectoryFeed()
		c.mux.reset()
		c.pendingCreateRef = ""
		c.transport.Disconnect()
		mode := c.st.mode
		c.st = newState()
		c.st.mode = mode
		c.publish()
	})
}

// Close disconnects and stops the run loop. The coordinator cannot be
// reused afterwards; subscriber channels are closed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.do(func() {
			c.wantConnected = false
			c.stopRetry()
			c.stopDirectoryFeed()
			c.transport.Disconnect()
			c.runCancel()
			close(c.done)
		})
	})
}

// CreateSession asks the server to create a session from the lobby. The
// reply triggers an automatic topic switch into the new session.
func (c *Coordinator) CreateSession(sess service.Session) {
	c.do(func() {
		if c.st.phase != PhaseLobbyJoined {
			c.reporter.Report(service.ErrorKindDomain, fmt.Errorf("create session %q: not in lobby (phase %s)", sess.Name, c.st.phase))
			return
		}
		payload := map[string]any{"name": sess.Name}
		if sess.Description != "" {
			payload["description"] = sess.Description
		}
		if sess.Password != "" {
			payload["password"] = sess.Password
		}
		c.pendingCreateRef = c.mux.push(channel.LobbyTopic, channel.EventCreateSession, payload)
	})
}

// JoinSession switches topics into the given session, optimistically
// transitioning to SessionJoined pending the server's acknowledgment.
func (c *Coordinator) JoinSession(sessionID string) {
	c.do(func() {
		if sessionID == "" {
			c.reporter.Report(service.ErrorKindDomain, errors.New("join session: empty session id"))
			return
		}
		if c.st.hasJoinedSession && c.st.currentSession != nil && c.st.currentSession.ID == sessionID {
			return
		}
		c.mux.switchToSession(sessionID, c.identity.UserID())
		c.st.phase = PhaseSessionJoined
		c.st.currentSession = &service.Session{ID: sessionID}
		c.st.currentUsers = nil
		c.st.hasJoinedSession = false
		c.publish()
		c.resolveSession(sessionID)
	})
}

// LeaveSession leaves the session topic and returns to the lobby. Leaving
// a session the client is not joined to emits no frame and changes nothing.
func (c *Coordinator) LeaveSession(sessionID string) {
	c.do(func() {
		topic := channel.SessionTopic(sessionID)
		if !c.mux.isJoined(topic) {
			return
		}
		c.mux.leave(topic)
		c.st.clearMembership()
		c.st.phase = PhaseLobbyJoined
		c.mux.join(channel.LobbyTopic)
		c.publish()
	})
}

// SendRaw passes an already-formed envelope to the transport unchanged.
func (c *Coordinator) SendRaw(env channel.Envelope) {
	c.do(func() {
		c.transport.Send(env)
	})
}

// SetMode switches the local UI mode. Never synchronized to the server.
func (c *Coordinator) SetMode(mode Mode) {
	c.do(func() {
		if c.st.mode == mode {
			return
		}
		c.st.mode = mode
		c.publish()
	})
}

// Subscribe registers an observer. The current snapshot is delivered first,
// then every subsequent change. The returned cancel func unregisters the
// observer and closes its channel; it is safe to call more than once. On a
// closed coordinator the returned channel is already closed.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, snapshotBuffer)
	register := func() {
		select {
		case <-c.done:
		default:
			if c.subscribers != nil {
				c.subscribers[ch] = true
				ch <- c.st.snapshot()
				return
			}
		}
		close(ch)
	}
	select {
	case <-c.done:
		close(ch)
		return ch, func() {}
	default:
	}
	select {
	case c.actions <- register:
	case <-c.done:
		close(ch)
		return ch, func() {}
	}
	cancel := func() {
		c.do(func() {
			if c.subscribers[ch] {
				delete(c.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Snapshot returns the current state synchronously.
func (c *Coordinator) Snapshot() Snapshot {
	res := make(chan Snapshot, 1)
	c.do(func() {
		res <- c.st.snapshot()
	})
	select {
	case snap := <-res:
		return snap
	case <-c.done:
		return Snapshot{Phase: PhaseDisconnected, SelectedMode: ModeLounge}
	}
}

func (c *Coordinator) dial() {
	userID := c.identity.UserID()
	token := c.identity.Token()
	go func() {
		err := c.transport.Connect(c.runCtx, userID, token)
		c.do(func() {
			if !c.wantConnected {
				return
			}
			if err != nil {
				if errors.Is(err, channel.ErrInvalidEndpoint) {
					// Not retried; a malformed endpoint never fixes itself.
					c.wantConnected = false
					c.st.phase = PhaseDisconnected
					c.publish()
					return
				}
				c.scheduleReconnect()
				return
			}
			c.retry.Reset()
			c.st.clearMembership()
			c.mux.reset()
			c.mux.join(channel.LobbyTopic)
			c.startDirectoryFeed(userID)
			c.publish()
		})
	}()
}

// handleTransportGone reacts to the connection dying under us. Reconnection
// rejoins the lobby only; session-topic membership lapsed with the
// connection and is not silently re-established.
func (c *Coordinator) handleTransportGone() {
	c.st.isConnected = false
	c.mux.reset()
	c.stopDirectoryFeed()
	c.pendingCreateRef = ""
	if !c.wantConnected {
		c.publish()
		return
	}
	c.st.clearMembership()
	c.st.phase = PhaseConnecting
	c.publish()
	c.scheduleReconnect()
}

func (c *Coordinator) scheduleReconnect() {
	c.stopRetry()
	delay := c.retry.Duration()
	slog.Debug("scheduling reconnect", "delay", delay)
	c.retryTimer = time.AfterFunc(delay, func() {
		c.do(func() {
			if !c.wantConnected {
				return
			}
			c.dial()
		})
	})
}

func (c *Coordinator) stopRetry() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Coordinator) apply(msg reconcile.Message) {
	switch m := msg.(type) {
	case reconcile.JoinAck:
		c.applyJoinAck(m)
	case reconcile.CloseAck:
		slog.Debug("topic closed by server", "topic", m.Topic)
		c.mux.drop(m.Topic)
	case reconcile.SessionDescribed:
		c.applySessionDescribed(m)
	case reconcile.LobbyRosterUpdated:
		c.applyRoster(m)
	case reconcile.ErrorReported:
		c.applyError(m)
	case reconcile.Unrecognized:
		slog.Debug("unrecognized message", "topic", m.Envelope.Topic, "event", m.Envelope.Event)
	}
}

func (c *Coordinator) applyJoinAck(m reconcile.JoinAck) {
	if m.Topic == channel.LobbyTopic {
		if c.st.phase == PhaseConnecting {
			c.st.phase = PhaseLobbyJoined
			c.publish()
		}
		return
	}
	id := channel.SessionIDFromTopic(m.Topic)
	if id == "" || c.st.currentSession == nil || c.st.currentSession.ID != id {
		return
	}
	if !c.st.hasJoinedSession {
		c.st.hasJoinedSession = true
		c.publish()
	}
}

func (c *Coordinator) applySessionDescribed(m reconcile.SessionDescribed) {
	sess := m.Session

	// Reply to our create_session request: switch topics into the newly
	// created session.
	if c.pendingCreateRef != "" && (m.Ref == "" || m.Ref == c.pendingCreateRef) {
		c.pendingCreateRef = ""
		if sess.ID == "" {
			c.reporter.Report(service.ErrorKindProtocol, errors.New("session record without resolved id"))
			return
		}
		c.mux.switchToSession(sess.ID, c.identity.UserID())
		c.st.phase = PhaseSessionJoined
		c.st.currentSession = sess.Clone()
		c.st.currentUsers = nil
		c.st.hasJoinedSession = true
		c.publish()
		if len(sess.UserIDs) > 0 {
			c.hydrateRoster(sess.ID, sess.UserIDs)
		}
		return
	}

	// Full record after a join round trip on the current session's topic.
	if c.st.currentSession == nil {
		return
	}
	topicID := channel.SessionIDFromTopic(m.Topic)
	if sess.ID != c.st.currentSession.ID && topicID != c.st.currentSession.ID {
		return
	}
	merged := sess.Clone()
	if merged.ID == "" {
		merged.ID = c.st.currentSession.ID
	}
	c.st.currentSession = merged
	c.st.hasJoinedSession = true
	c.publish()
	if len(merged.UserIDs) > 0 {
		c.hydrateRoster(merged.ID, merged.UserIDs)
	}
}

// applyRoster applies a roster push. Pushes apply only while a session is
// joined, and an empty push never clears an already-known roster (a leave
// racing a late push must not flicker the roster away).
func (c *Coordinator) applyRoster(m reconcile.LobbyRosterUpdated) {
	if c.st.phase != PhaseSessionJoined || c.st.currentSession == nil {
		return
	}
	if len(m.UserIDs) == 0 {
		return
	}
	if id := channel.SessionIDFromTopic(m.Topic); id != "" && id != c.st.currentSession.ID {
		return
	}
	c.st.currentSession.UserIDs = append([]string(nil), m.UserIDs...)
	c.publish()
	c.hydrateRoster(c.st.currentSession.ID, m.UserIDs)
}

func (c *Coordinator) applyError(m reconcile.ErrorReported) {
	// A rejected create_session disarms the reply correlation; left armed,
	// a later unsolicited ref-less description would be taken for the
	// create reply and silently switch topics.
	if c.pendingCreateRef != "" && (m.Ref == c.pendingCreateRef || (m.Ref == "" && m.Topic == channel.LobbyTopic)) {
		c.pendingCreateRef = ""
		c.reporter.Report(service.ErrorKindDomain, fmt.Errorf("create session: %s", m.Reason))
		return
	}

	// Rollback applies only to errors on the current session's own topic;
	// a late lobby reply must not tear down an unrelated joined session.
	if c.st.phase == PhaseSessionJoined && c.st.currentSession != nil &&
		channel.SessionIDFromTopic(m.Topic) == c.st.currentSession.ID {
		c.reporter.Report(service.ErrorKindDomain, fmt.Errorf("%w: %s", ErrSessionNotFound, m.Reason))
		c.mux.drop(channel.SessionTopic(c.st.currentSession.ID))
		c.st.clearMembership()
		c.st.phase = PhaseLobbyJoined
		c.mux.join(channel.LobbyTopic)
		c.publish()
		return
	}
	c.reporter.Report(service.ErrorKindDomain, errors.New(m.Reason))
}

func (c *Coordinator) applyConnectivity(connected bool) {
	if c.st.isConnected == connected {
		return
	}
	c.st.isConnected = connected
	c.publish()
}

// hydrateRoster resolves user ids to full User records off the run loop.
// The result is tagged with the session it was issued for; applyHydration
// discards it if a quick leave+rejoin changed the current session meanwhile.
func (c *Coordinator) hydrateRoster(sessionID string, ids []string) {
	ids = append([]string(nil), ids...)
	go func() {
		users, err := c.directory.ResolveUsers(c.runCtx, ids)
		select {
		case c.hydrated <- rosterHydration{sessionID: sessionID, users: users, err: err}:
		case <-c.done:
		}
	}()
}

func (c *Coordinator) applyHydration(h rosterHydration) {
	if h.err != nil {
		c.reporter.Report(service.ErrorKindDomain, fmt.Errorf("resolve roster: %w", h.err))
		return
	}
	if c.st.phase != PhaseSessionJoined || c.st.currentSession == nil || c.st.currentSession.ID != h.sessionID {
		slog.Debug("dropping stale roster hydration", "session_id", h.sessionID)
		return
	}
	c.st.currentUsers = append([]service.User(nil), h.users...)
	c.publish()
}

func (c *Coordinator) resolveSession(sessionID string) {
	go func() {
		sess, err := c.directory.ResolveSession(c.runCtx, sessionID)
		select {
		case c.resolved <- sessionResolution{sessionID: sessionID, session: sess, err: err}:
		case <-c.done:
		}
	}()
}

func (c *Coordinator) applyResolution(r sessionResolution) {
	if r.err != nil {
		c.reporter.Report(service.ErrorKindDomain, fmt.Errorf("resolve session %s: %w", r.sessionID, r.err))
		return
	}
	if r.session == nil {
		return
	}
	if c.st.phase != PhaseSessionJoined || c.st.currentSession == nil || c.st.currentSession.ID != r.sessionID {
		return
	}
	merged := r.session.Clone()
	// Server roster pushes take precedence over the stored record.
	if len(c.st.currentSession.UserIDs) > 0 {
		merged.UserIDs = append([]string(nil), c.st.currentSession.UserIDs...)
	}
	c.st.currentSession = merged
	c.publish()
}

func (c *Coordinator) startDirectoryFeed(userID string) {
	c.stopDirectoryFeed()
	ctx, cancel := context.WithCancel(c.runCtx)
	c.feedCancel = cancel
	go func() {
		feed, err := c.directory.SessionsForUser(ctx, userID)
		if err != nil {
			c.reporter.Report(service.ErrorKindDomain, fmt.Errorf("session directory feed: %w", err))
			return
		}
		for sessions := range feed {
			select {
			case c.directoryFeed <- sessions:
			case <-c.done:
				return
			}
		}
	}()
}

func (c *Coordinator) stopDirectoryFeed() {
	if c.feedCancel != nil {
		c.feedCancel()
		c.feedCancel = nil
	}
}

func (c *Coordinator) applyDirectory(sessions []service.Session) {
	c.st.available = append([]service.Session(nil), sessions...)
	c.publish()
}

func (c *Coordinator) publish() {
	snap := c.st.snapshot()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow observer; skip this update rather than block the loop.
		}
	}
}
