// Package reconcile classifies raw inbound channel payloads into a closed
// set of typed message kinds.
//
// The reconcile package implements:
//   - The message-kind taxonomy (join/close acks, session records, roster
//     pushes, server errors, unrecognized fallback)
//   - Ordered first-match classification of structurally ambiguous payloads
//   - Typed-value unwrapping for the server's document encoding
//   - Entity id resolution from fully-qualified resource names
//
// Classification Order:
//
// Payload shapes overlap: a reply that carries a full session record also
// carries a status, and a roster push shares the envelope shape with plain
// acks. Decode therefore tries the most field-rich shape first and the
// order is part of the package contract, pinned by tests.
//
// The reconciler is independent of the transport: it sees only decoded
// envelopes and produces values; applying them to state is the session
// package's job.
package reconcile
