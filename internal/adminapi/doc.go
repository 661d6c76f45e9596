// Package adminapi serves the dashboard's JSON API for users, apps, and
// assignments.
//
// # Routes
//
// All routes live under /api. GET /api/health is unauthenticated; everything
// else requires a bearer API key. Read endpoints accept any valid key; write
// endpoints (POST, PUT, DELETE) require the service_role key and return 403
// for the anon key.
//
//   - /api/users: list (search, limit), create, get, update, delete, plus
//     per-user assignment and unassigned-app views
//   - /api/apps: list (search, category, limit), create, get, update, delete,
//     plus per-app assignment and unassigned-user views. The detail endpoint
//     renders the app's notes markdown into notes_html.
//   - /api/assignments: POST upserts on the (user_id, app_id) pair; PUT and
//     DELETE address a row by id. user_id and app_id are immutable on update.
//
// # Status Mapping
//
// Validation problems are 400, unknown ids 404, and duplicate emails or app
// names 409 with the message the dashboard displays. Store failures outside
// those cases are logged and returned as 500.
package adminapi
