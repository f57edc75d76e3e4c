// Package session implements the client-side session state machine for the
// coworking realtime protocol.
//
// The session package implements:
//   - The membership state machine (disconnected, connecting, lobby joined,
//     session joined)
//   - The topic multiplexer with join/leave lifecycle and ref stamping
//   - Optimistic join with server-error rollback
//   - Roster hydration with stale-result rejection
//   - Reconnection with exponential backoff, rejoining the lobby only
//   - An observable stream of immutable state snapshots
//
// Ownership Model:
//
// A Coordinator is the single logical owner of SessionState. Every mutation
// runs on one goroutine: user actions, decoded inbound frames, connectivity
// edges, and hydration results are all commands delivered to that loop over
// channels. Nothing outside the loop touches the state, so observers never
// see an interleaved partial update.
//
// Topic Lifecycle:
//
// The client is joined to at most one session-specific topic at a time and
// may additionally be joined to the lobby. Switching into a session is a
// compound operation with significant ordering: leave the lobby, join the
// session topic, then announce membership with a join_session event.
// Leaving a topic the client is not joined to is a no-op.
//
// Hydration:
//
// Roster pushes carry user ids; resolving them to full User records is a
// round trip to the directory collaborator that may complete out of order
// relative to later transitions. Each hydration result is tagged with the
// session it was issued for and discarded unless that session is still the
// current one (last-writer-wins with a staleness check).
//
// Usage:
//
//	coord, err := session.NewCoordinator(factory, identity, directory, reporter)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer coord.Close()
//
//	snapshots, cancel := coord.Subscribe()
//	defer cancel()
//
//	coord.Connect()
//	for snap := range snapshots {
//		render(snap)
//	}
package session
