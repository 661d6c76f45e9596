// Package tools provides the tool registry and dashboard tool set exposed over MCP.
//
// # Overview
//
// Tools are in-process functions that operate on the store. The registry holds
// them by name and is the single registration path; the MCP server dispatches
// tools/list and tools/call against it.
//
// # Tool Set
//
// The dashboard set provides 6 tools:
//
//   - health: Simple status ping
//   - list_users: Return users (optionally filtered by name)
//   - list_apps: Return apps (optionally by category)
//   - assign_user_to_app: Create or update a user to app assignment
//   - list_user_assignments: Apps assigned to a user, newest first
//   - create_user: Create a new user with validation
//
// # Registration
//
// Register the dashboard set:
//
//	registry := tools.NewRegistry(logger)
//	err := registry.RegisterAll(tools.DashboardTools(store))
//
// Registering a name twice returns ErrToolCollision.
//
// # Tool Implementation
//
// Each tool handler has signature:
//
//	func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
//
// Input is the raw JSON arguments object from the tools/call request; the
// result is raw JSON that the MCP server wraps in a text content block.
// Handler errors become isError tool results, not protocol errors.
//
// # Validation
//
// Handlers validate their own input: email addresses must look like addresses,
// start dates are YYYY-MM-DD, assignment status is "active" or "revoked", and
// list limits are clamped to 1-100 with a default of 25.
package tools
