package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/cowork-labs/cowork-core/service"
)

const (
	// Time allowed to write a frame or control message to the server.
	writeWait = 10 * time.Second

	// Liveness probe period. Fixed by the protocol, no override exposed.
	probeInterval = 10 * time.Second

	// Handshake timeout for the initial dial.
	dialWait = 10 * time.Second
)

var (
	ErrNotConnected = errors.New("socket is not connected")

	// ErrInvalidEndpoint marks a connect failure caused by a malformed
	// endpoint rather than by the network. Callers should not retry it.
	ErrInvalidEndpoint = errors.New("invalid channel endpoint")
)

// SocketOptions configures a Socket. Host is required; everything else has
// a usable default.
type SocketOptions struct {
	// Scheme is "wss" unless overridden for local development servers.
	Scheme string

	// Host is the channel server authority, e.g. "channels.example.com".
	Host string

	// Reporter receives every transport and protocol failure. Defaults to
	// service.NopReporter.
	Reporter service.ErrorReporter

	// OnEnvelope is invoked from the receive loop for each decoded frame.
	OnEnvelope func(Envelope)

	// OnConnectivity is invoked with the result of each liveness probe and
	// on connect/disconnect edges.
	OnConnectivity func(connected bool)

	// OnClosed is invoked once when the connection is gone for good (the
	// receive loop hit a terminal error). The owner may dial again.
	OnClosed func()
}

// Socket owns exactly one connection to the channel server. All writes go
// through Send under an internal lock; the receive loop and liveness timer
// run as goroutines bound to the connection's lifetime.
type Socket struct {
	scheme   string
	host     string
	dialer   *websocket.Dialer
	reporter service.ErrorReporter

	onEnvelope     func(Envelope)
	onConnectivity func(bool)
	onClosed       func()

	// probeEvery mirrors probeInterval; tests shorten it.
	probeEvery time.Duration

	// pongGrace is how long a probe may go unanswered before the read
	// deadline declares the connection dead. Tests shorten it.
	pongGrace time.Duration

	mu   sync.Mutex // guards conn, done, and frame writes
	conn *websocket.Conn
	done chan struct{}
}

// NewSocket creates a socket from options. It does not dial.
func NewSocket(opts SocketOptions) *Socket {
	if opts.Scheme == "" {
		opts.Scheme = "wss"
	}
	if opts.Reporter == nil {
		opts.Reporter = service.NopReporter{}
	}
	return &Socket{
		scheme:         opts.Scheme,
		host:           opts.Host,
		dialer:         &websocket.Dialer{HandshakeTimeout: dialWait},
		reporter:       opts.Reporter,
		onEnvelope:     opts.OnEnvelope,
		onConnectivity: opts.OnConnectivity,
		onClosed:       opts.OnClosed,
		probeEvery:     probeInterval,
		pongGrace:      probeInterval + writeWait,
	}
}

// Connect dials the channel server as userID, attaching the bearer token
// when present, and starts the receive loop and liveness timer. A malformed
// endpoint never panics; it is reported as a configuration error and the
// socket stays disconnected.
func (s *Socket) Connect(ctx context.Context, userID, token string) error {
	endpoint, err := s.endpointURL(userID)
	if err != nil {
		s.reporter.Report(service.ErrorKindConfiguration, err)
		s.notifyConnectivity(false)
		return err
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := s.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		s.reporter.Report(service.ErrorKindTransport, fmt.Errorf("dial channel server: %w", err))
		s.notifyConnectivity(false)
		return err
	}

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		conn.Close()
		return errors.New("socket already connected")
	}
	done := make(chan struct{})
	s.conn = conn
	s.done = done
	s.mu.Unlock()

	// Connectivity is confirmed by the peer's pongs, not by our writes
	// succeeding: each pong pushes the read deadline out, so a half-dead
	// connection trips the deadline instead of staying "connected" until
	// the TCP buffer fills.
	conn.SetReadDeadline(time.Now().Add(s.pongGrace))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongGrace))
		s.notifyConnectivity(true)
		return nil
	})

	slog.Debug("channel socket connected", "host", s.host, "user_id", userID)
	s.notifyConnectivity(true)

	go s.readLoop(conn, done)
	go s.heartbeat(conn, done)
	return nil
}

// Send serializes the envelope and writes it as a single text frame. Send
// is fire-and-forget: failures are reported, never returned, consistent
// with a lossy realtime channel.
func (s *Socket) Send(env Envelope) {
	data, err := env.Encode()
	if err != nil {
		s.reporter.Report(service.ErrorKindProtocol, fmt.Errorf("encode %s: %w", env.Event, err))
		return
	}

	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		s.reporter.Report(service.ErrorKindTransport, ErrNotConnected)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.mu.Unlock()

	if err != nil {
		s.reporter.Report(service.ErrorKindTransport, fmt.Errorf("send %s on %s: %w", env.Event, env.Topic, err))
	}
}

// Disconnect closes the connection with a going-away code and cancels the
// liveness timer. Safe to call repeatedly and while loops are running.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.conn = nil
	s.done = nil
	if done != nil {
		close(done)
	}
	s.mu.Unlock()

	if conn == nil {
		return
	}

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()

	slog.Debug("channel socket disconnected", "host", s.host)
	s.notifyConnectivity(false)
}

// endpointURL builds wss://<host>/session/websocket?user_id=<id>.
func (s *Socket) endpointURL(userID string) (string, error) {
	if s.host == "" {
		return "", fmt.Errorf("%w: host is empty", ErrInvalidEndpoint)
	}
	u, err := url.Parse(s.scheme + "://" + s.host)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host %q", ErrInvalidEndpoint, s.host)
	}
	u.Path = "/session/websocket"
	q := url.Values{}
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop re-arms a receive after every frame for the lifetime of the
// connection. A receive error marks the socket disconnected and the loop
// re-arms once; errors from the read path are permanent per
// gorilla/websocket, so a second consecutive failure tears the connection
// down and fires OnClosed rather than spinning on the same error.
func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	retry := &backoff.Backoff{Min: 50 * time.Millisecond, Max: 2 * time.Second, Jitter: true}
	rearmed := false

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			s.reporter.Report(service.ErrorKindTransport, fmt.Errorf("receive: %w", err))
			s.notifyConnectivity(false)
			if isTerminalRead(err) || rearmed {
				s.teardown(conn, done)
				if s.onClosed != nil {
					s.onClosed()
				}
				return
			}
			rearmed = true
			time.Sleep(retry.Duration())
			continue
		}
		rearmed = false
		retry.Reset()

		env, err := DecodeEnvelope(data)
		if err != nil {
			s.reporter.Report(service.ErrorKindProtocol, err)
			continue
		}
		if s.onEnvelope != nil {
			s.onEnvelope(env)
		}
	}
}

// heartbeat probes the server every probe interval. The peer's pong is the
// success signal, reported by the pong handler; a successful local write
// proves nothing about the other end. Probe results are transport-level
// only and say nothing about topic membership.
func (s *Socket) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.probeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				s.reporter.Report(service.ErrorKindTransport, fmt.Errorf("liveness probe: %w", err))
				s.notifyConnectivity(false)
			}
		}
	}
}

// teardown releases the connection after a terminal read error, unless
// Disconnect already did.
func (s *Socket) teardown(conn *websocket.Conn, done chan struct{}) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.done = nil
		close(done)
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Socket) notifyConnectivity(connected bool) {
	if s.onConnectivity != nil {
		s.onConnectivity(connected)
	}
}

func isTerminalRead(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	// A read deadline expiry is an unanswered probe: the peer is gone.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
