// Package channel provides the WebSocket transport for the coworking
// realtime protocol.
//
// The channel package implements:
//   - Envelope, the JSON wire message unit (topic/event/payload/ref)
//   - Topic naming for the lobby and session-specific channels
//   - Socket, the single owned connection to the channel server
//   - Periodic liveness probes and a self-healing receive loop
//
// Connection Ownership:
//
// A Socket owns exactly one connection. No other component writes to the
// underlying connection directly; all outbound traffic goes through Send,
// which serializes frames under an internal lock. The receive loop and the
// liveness timer are goroutines bound to the connection and are torn down
// by Disconnect or by a terminal receive error, never orphaned.
//
// Liveness:
//
// Every 10 seconds the socket sends a ping probe. The peer's pong marks the
// socket connected and pushes the read deadline out; an unanswered probe
// trips the deadline and ends the connection. Probe results are
// transport-level only and carry no information about topic membership.
//
// Error Discipline:
//
// Send and the receive loop never return errors to their callers. Every
// failure is categorized and handed to the configured ErrorReporter, after
// which the socket recovers locally: sends are dropped and the receive
// loop re-arms once. Read-path errors are permanent in gorilla/websocket,
// so a repeated receive failure, a peer close, or a closed network
// connection ends the connection, signaled through OnClosed.
//
// Usage:
//
//	sock := channel.NewSocket(channel.SocketOptions{
//		Host:       "channels.example.com",
//		Reporter:   reporter,
//		OnEnvelope: route,
//	})
//	if err := sock.Connect(ctx, userID, token); err != nil {
//		// reported already; caller decides whether to retry
//	}
//	sock.Send(channel.Envelope{Topic: channel.LobbyTopic, Event: channel.EventJoin})
package channel
