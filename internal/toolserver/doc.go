// Package toolserver implements the MCP stdio transport for the dashboard tools.
//
// # Overview
//
// The server reads newline-delimited JSON-RPC 2.0 requests from stdin and
// writes one response line per request to stdout. Logging goes to stderr so
// stdout stays reserved for protocol traffic.
//
// # Methods
//
//   - initialize: protocol handshake; advertises tools capability
//   - ping: liveness check, empty result
//   - tools/list: definitions of all registered tools, sorted by name
//   - tools/call: dispatches to the registry
//
// Requests without an id are notifications and produce no response.
//
// # Readiness
//
// Once the server is accepting requests it prints ReadyMarker to the announce
// writer (stderr). Supervising processes watch for this line before sending
// traffic.
//
// # Error Handling
//
// Protocol-level failures (parse errors, unknown methods, unknown tools) are
// JSON-RPC error responses with standard codes. Tool execution failures are
// successful responses carrying an isError result with the failure text, per
// the MCP convention.
package toolserver
