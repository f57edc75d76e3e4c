package service

import "context"

// ErrorKind categorizes failures surfaced through an ErrorReporter.
type ErrorKind string

const (
	// ErrorKindTransport covers connect, send, and receive failures.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindProtocol covers malformed or unrecognized payloads.
	ErrorKindProtocol ErrorKind = "protocol"
	// ErrorKindDomain covers server-signaled failures such as a missing session.
	ErrorKindDomain ErrorKind = "domain"
	// ErrorKindConfiguration covers assembly-time problems such as a
	// malformed endpoint URL.
	ErrorKindConfiguration ErrorKind = "configuration"
)

// Identity supplies the credentials the transport connects with. Token may
// be empty for unauthenticated development servers.
type Identity interface {
	UserID() string
	Token() string
}

// Directory is the narrow boundary to the user/session document store.
// Implementations live outside this module.
type Directory interface {
	// ResolveUsers hydrates user ids pushed by the server into full User
	// records, preserving input order for ids that resolve.
	ResolveUsers(ctx context.Context, ids []string) ([]User, error)

	// SessionsForUser returns a push channel of lobby directory updates for
	// the given user. The channel is closed when ctx is cancelled.
	SessionsForUser(ctx context.Context, userID string) (<-chan []Session, error)

	// ResolveSession fetches a single session record, or nil if unknown.
	ResolveSession(ctx context.Context, id string) (*Session, error)
}

// ErrorReporter receives every failure the core recovers from. The core
// never propagates errors across this boundary; callers of core actions
// observe failures only through reported errors and state snapshots.
type ErrorReporter interface {
	Report(kind ErrorKind, err error)
}

// NopReporter discards all reports. Useful as a default and in tests.
type NopReporter struct{}

func (NopReporter) Report(ErrorKind, error) {}

// StaticIdentity is a fixed user id / token pair, suitable for CLI use
// where credentials come from configuration rather than a sign-in flow.
type StaticIdentity struct {
	User        string
	BearerToken string
}

func (s StaticIdentity) UserID() string { return s.User }
func (s StaticIdentity) Token() string  { return s.BearerToken }
