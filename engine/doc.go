// Package engine implements the request orchestrator.
//
// Each request moves through a fixed sequence of states:
//
//	RECEIVED -> EMBEDDED -> MEMORY_JOINED -> ROUTED -> EXECUTED -> PERSISTED -> REPORTED -> RESPONDED
//
// and ERROR is reachable from any of them. The orchestrator embeds the
// request, joins similar prior interactions from the memory pool, selects an
// agent, executes it, stores the interaction when there is something worth
// remembering, reports the routing outcome and returns the agent's result
// unchanged.
//
// Failures never reach the caller as Go errors or internal detail: the
// response is a uniform {"error", "code": 500, "request_id"} map and the
// cause is logged under the same request id.
//
// Process is safe for concurrent use; each call is independent and the only
// shared mutable state is the memory pool.
package engine
