// Package ensemble is a local actor runtime: addressable actors that
// exchange asynchronous messages and supervise each other's failures.
//
// The package implements the actor kernel only — mailbox scheduling, the
// per-actor lifecycle state machine, parent/child supervision, and the
// watch/terminated protocol. Remote transport, cluster membership, and
// persistence are external collaborators. The remote subpackage provides a
// RemoteProcess (a Process that sends over gRPC) and an EndpointReader for
// inbound traffic; the local registry resolves a PID with a foreign system
// address to DeadLetter, not to a RemoteProcess.
package ensemble
