// Package shim bridges HTTP clients to a child MCP server process.
//
// # Overview
//
// The shim spawns the MCP tool server as a child process, speaks
// newline-delimited JSON-RPC over its stdin/stdout, and exposes a small HTTP
// surface for dashboards and scripts that cannot speak MCP directly.
//
// # Lifecycle
//
// The bridge tracks the child through three states:
//
//   - starting: process spawned, readiness marker not yet seen on stderr
//   - ready: child printed the marker and accepts tool calls
//   - exited: child terminated; pending and future calls fail
//
// Calls before readiness return ErrNotReady; the HTTP layer maps that to 503.
//
// # Request Correlation
//
// Each tool call is sent with a uuid request id. A reader goroutine matches
// child responses to waiting callers by id, so concurrent calls and
// out-of-order replies resolve correctly. Calls are bounded by a timeout and
// by the request context.
//
// # Endpoints
//
//   - GET /health: {ok, mcpReady, time}
//   - POST /tools/{toolName}: JSON body forwarded as tool arguments
//
// Tool failures reported by the child come back as 502 with the failure text;
// timeouts are 504 and a dead child is 502.
package shim
