// Package core provides the foundational domain types and collaborator
// contracts shared by every agentrouter package:
//
//   - Request / Result (inbound payload and pass-through agent outcome)
//   - Embedding plus the ImageEncoder / TextEncoder collaborators
//   - AgentKind (closed set of routing targets) and the Agent interface
//   - RoutingOutcome and the RoutingRecorder metrics collaborator
//
// Implementation concerns (similarity search, tool injection, orchestration)
// live in sibling packages so that this package stays dependency free.
package core
