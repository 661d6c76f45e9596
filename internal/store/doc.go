// Package store provides persistent storage for the access roster.
//
// # Architecture
//
// A single Store interface covers users, apps, and user→app assignments.
// SQLStore implements it over database/sql with two supported drivers:
//
//   - postgres (github.com/lib/pq): the hosted database service
//   - sqlite (modernc.org/sqlite): local development and tests
//
// Queries are written once with ? placeholders and rebound to $n for
// postgres. The store owns no in-process authoritative state; every read
// re-fetches from the database and all consistency (unique emails, unique
// (user_id, app_id) pairs, foreign keys) is delegated to constraints.
//
// # Data Models
//
//   - User: person with unique, case-normalized email
//   - App: catalog entry with unique name and status enum
//   - Assignment: one row per (user, app) pair, written via upsert
//   - AssignmentDetail: row of the read-only assignments_expanded view
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateEmail: users.email uniqueness violated
//   - ErrDuplicateApp: apps.name uniqueness violated
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests; NewSQLStore("sqlite", path) for
// integration tests with a real database.
package store
