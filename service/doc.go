// Package service defines the domain types and collaborator boundaries of
// the coworking realtime core.
//
// The service package contains:
//   - User and Session, the two entities exchanged with backing services
//   - Identity, the credential source the transport connects with
//   - Directory, the narrow interface to the user/session document store
//   - ErrorReporter, the sink every recovered failure is surfaced to
//
// Boundary Discipline:
//
// The realtime core treats everything behind these interfaces as external.
// Credential flows, document CRUD, and notification delivery are supplied
// by the embedding application; the core only calls the methods declared
// here and never depends on a concrete backend.
//
// Error Reporting:
//
// No error crosses a collaborator boundary as a panic or a returned error
// to a view-facing action. Failures are categorized by ErrorKind and handed
// to the configured ErrorReporter, then recovered locally (see the session
// package for the recovery rules per kind).
//
// Usage:
//
//	identity := service.StaticIdentity{User: "u1", BearerToken: tok}
//	core := session.NewCoordinator(sock, identity, directory, reporter)
package service
