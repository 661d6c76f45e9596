// ABOUTME: SQL implementation of the Store interface for Postgres and SQLite
// ABOUTME: Provides user/app/assignment persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements the Store interface over database/sql.
// The sqlite driver is used for local development and tests; postgres for
// the hosted database service.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLStore opens a store using the given driver ("sqlite" or "postgres")
// and DSN. The schema is created if it doesn't exist. For sqlite, parent
// directories of the database file are created if needed.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == DriverSQLite {
		// Enable WAL mode for better concurrent performance
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	} else {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("store initialized", "driver", driver)
	return s, nil
}

// ConfigurePool applies connection pool limits. Zero values leave the
// database/sql defaults in place.
func (s *SQLStore) ConfigurePool(maxOpenConns int, connMaxLifetime time.Duration) {
	if maxOpenConns > 0 {
		s.db.SetMaxOpenConns(maxOpenConns)
	}
	if connMaxLifetime > 0 {
		s.db.SetConnMaxLifetime(connMaxLifetime)
	}
}

// createSchema creates the tables and the assignments_expanded view if they
// don't exist. Statements are idempotent on both drivers.
func (s *SQLStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			job_role   TEXT,
			start_date TEXT,
			"group"    TEXT,
			team       TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS apps (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL UNIQUE,
			category         TEXT,
			vendor           TEXT,
			tier             TEXT,
			owner_team       TEXT,
			sso_required     INTEGER NOT NULL DEFAULT 0,
			data_sensitivity TEXT,
			status           TEXT NOT NULL DEFAULT 'active',
			website_url      TEXT,
			notes            TEXT,
			created_at       TEXT NOT NULL,

			CHECK (status IN ('active', 'inactive', 'deprecated'))
		);

		CREATE INDEX IF NOT EXISTS idx_apps_category ON apps(category);

		CREATE TABLE IF NOT EXISTS user_app_assignments (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			app_id       TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
			role_in_app  TEXT,
			license_type TEXT,
			access_level TEXT,
			assigned_on  TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'active',
			created_at   TEXT NOT NULL,

			UNIQUE (user_id, app_id),
			CHECK (status IN ('active', 'revoked'))
		);

		CREATE INDEX IF NOT EXISTS idx_assignments_user ON user_app_assignments(user_id);
		CREATE INDEX IF NOT EXISTS idx_assignments_app ON user_app_assignments(app_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Postgres has no CREATE VIEW IF NOT EXISTS; sqlite has no CREATE OR REPLACE VIEW.
	viewPrefix := "CREATE VIEW IF NOT EXISTS"
	if s.driver == DriverPostgres {
		viewPrefix = "CREATE OR REPLACE VIEW"
	}
	view := viewPrefix + ` assignments_expanded AS
		SELECT a.id, a.user_id, a.app_id, a.role_in_app, a.license_type,
		       a.access_level, a.assigned_on, a.status, a.created_at,
		       u.name AS user_name, u.email, u.team, u."group" AS "group",
		       ap.name AS app_name, ap.category, ap.vendor, ap.tier
		FROM user_app_assignments a
		JOIN users u ON u.id = a.user_id
		JOIN apps ap ON ap.id = a.app_id`

	_, err := s.db.Exec(view)
	return err
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

// rebind converts ? placeholders to $1..$n for postgres. SQLite queries are
// written with ? and passed through unchanged.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// likeOp returns the case-insensitive substring-match operator for the driver.
// SQLite LIKE is case-insensitive for ASCII by default; postgres needs ILIKE.
func (s *SQLStore) likeOp() string {
	if s.driver == DriverPostgres {
		return "ILIKE"
	}
	return "LIKE"
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a foreign-key violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Users

// CreateUser inserts a new user. The email is normalized to lower case before
// insert; ID and CreatedAt are populated if unset. A duplicate email returns
// ErrDuplicateEmail.
func (s *SQLStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = NormalizeEmail(user.Email)

	query := s.rebind(`
		INSERT INTO users (id, name, email, job_role, start_date, "group", team, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.JobRole,
		user.StartDate,
		user.Group,
		user.Team,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "email", user.Email)
	return nil
}

const userColumns = `id, name, email, COALESCE(job_role, ''), COALESCE(start_date, ''),
	COALESCE("group", ''), COALESCE(team, ''), created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var createdAt string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.JobRole, &u.StartDate, &u.Group, &u.Team, &createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by ID. Returns ErrNotFound if the user doesn't exist.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	user, err := scanUser(s.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

// ListUsers returns users ordered by name, optionally filtered by a
// case-insensitive substring match on name. limit is clamped via ClampLimit.
func (s *SQLStore) ListUsers(ctx context.Context, search string, limit int) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if search != "" {
		query += ` WHERE name ` + s.likeOp() + ` ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name LIMIT ?`
	args = append(args, ClampLimit(limit))

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser updates all mutable fields of a user. Returns ErrNotFound if the
// user doesn't exist and ErrDuplicateEmail if the new email is taken.
func (s *SQLStore) UpdateUser(ctx context.Context, user *User) error {
	user.Email = NormalizeEmail(user.Email)

	query := s.rebind(`
		UPDATE users
		SET name = ?, email = ?, job_role = ?, start_date = ?, "group" = ?, team = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		user.Name, user.Email, user.JobRole, user.StartDate, user.Group, user.Team, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("updating user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user and, via cascade, its assignments.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted user", "id", id)
	return nil
}

// Apps

// CreateApp inserts a new app. ID, Status, and CreatedAt are populated if
// unset. A duplicate name returns ErrDuplicateApp.
func (s *SQLStore) CreateApp(ctx context.Context, app *App) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = AppStatusActive
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}

	query := s.rebind(`
		INSERT INTO apps (id, name, category, vendor, tier, owner_team,
			sso_required, data_sensitivity, status, website_url, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		app.ID,
		app.Name,
		app.Category,
		app.Vendor,
		app.Tier,
		app.OwnerTeam,
		boolToInt(app.SSORequired),
		app.DataSensitivity,
		app.Status,
		app.WebsiteURL,
		app.Notes,
		formatTime(app.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateApp
		}
		return fmt.Errorf("inserting app: %w", err)
	}

	s.logger.Debug("created app", "id", app.ID, "name", app.Name)
	return nil
}

const appColumns = `id, name, COALESCE(category, ''), COALESCE(vendor, ''), COALESCE(tier, ''),
	COALESCE(owner_team, ''), sso_required, COALESCE(data_sensitivity, ''), status,
	COALESCE(website_url, ''), COALESCE(notes, ''), created_at`

func scanApp(row interface{ Scan(...any) error }) (*App, error) {
	var a App
	var sso int
	var createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.Category, &a.Vendor, &a.Tier, &a.OwnerTeam,
		&sso, &a.DataSensitivity, &a.Status, &a.WebsiteURL, &a.Notes, &createdAt)
	if err != nil {
		return nil, err
	}
	a.SSORequired = sso != 0
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetApp retrieves an app by ID. Returns ErrNotFound if the app doesn't exist.
func (s *SQLStore) GetApp(ctx context.Context, id string) (*App, error) {
	query := s.rebind(`SELECT ` + appColumns + ` FROM apps WHERE id = ?`)
	app, err := scanApp(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying app: %w", err)
	}
	return app, nil
}

// GetAppByName retrieves an app by its exact name.
func (s *SQLStore) GetAppByName(ctx context.Context, name string) (*App, error) {
	query := s.rebind(`SELECT ` + appColumns + ` FROM apps WHERE name = ?`)
	app, err := scanApp(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying app by name: %w", err)
	}
	return app, nil
}

// ListApps returns apps ordered by name, filtered per AppFilter.
func (s *SQLStore) ListApps(ctx context.Context, filter AppFilter) ([]*App, error) {
	query := `SELECT ` + appColumns + ` FROM apps`
	var where []string
	var args []any
	if filter.Search != "" {
		where = append(where, `name `+s.likeOp()+` ?`)
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, filter.Category)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY name LIMIT ?`
	args = append(args, ClampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying apps: %w", err)
	}
	defer rows.Close()

	var apps []*App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning app: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// UpdateApp updates all mutable fields of an app.
func (s *SQLStore) UpdateApp(ctx context.Context, app *App) error {
	query := s.rebind(`
		UPDATE apps
		SET name = ?, category = ?, vendor = ?, tier = ?, owner_team = ?,
			sso_required = ?, data_sensitivity = ?, status = ?, website_url = ?, notes = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		app.Name, app.Category, app.Vendor, app.Tier, app.OwnerTeam,
		boolToInt(app.SSORequired), app.DataSensitivity, app.Status,
		app.WebsiteURL, app.Notes, app.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateApp
		}
		return fmt.Errorf("updating app: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteApp removes an app and, via cascade, its assignments.
func (s *SQLStore) DeleteApp(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM apps WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting app: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted app", "id", id)
	return nil
}

// Assignments

const assignmentReturning = `id, user_id, app_id, COALESCE(role_in_app, ''),
	COALESCE(license_type, ''), COALESCE(access_level, ''), assigned_on, status, created_at`

func scanAssignment(row interface{ Scan(...any) error }) (*Assignment, error) {
	var a Assignment
	var createdAt string
	err := row.Scan(&a.ID, &a.UserID, &a.AppID, &a.RoleInApp, &a.LicenseType,
		&a.AccessLevel, &a.AssignedOn, &a.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &a, nil
}

// UpsertAssignment inserts an assignment or, if one already exists for the
// (user_id, app_id) pair, overwrites its role/license/access/status. The
// existing row's id, assigned_on, and created_at are preserved on conflict.
// Returns the resulting row.
func (s *SQLStore) UpsertAssignment(ctx context.Context, a *Assignment) (*Assignment, error) {
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	status := a.Status
	if status == "" {
		status = AssignmentStatusActive
	}
	assignedOn := a.AssignedOn
	if assignedOn == "" {
		assignedOn = time.Now().UTC().Format("2006-01-02")
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := s.rebind(`
		INSERT INTO user_app_assignments
			(id, user_id, app_id, role_in_app, license_type, access_level, assigned_on, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, app_id) DO UPDATE SET
			role_in_app = excluded.role_in_app,
			license_type = excluded.license_type,
			access_level = excluded.access_level,
			status = excluded.status
		RETURNING ` + assignmentReturning)

	row := s.db.QueryRowContext(ctx, query,
		id, a.UserID, a.AppID, a.RoleInApp, a.LicenseType, a.AccessLevel,
		assignedOn, status, formatTime(createdAt))

	result, err := scanAssignment(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("upserting assignment: %w", err)
	}

	s.logger.Debug("upserted assignment", "id", result.ID, "user_id", result.UserID, "app_id", result.AppID)
	return result, nil
}

// GetAssignment retrieves an assignment row by ID.
func (s *SQLStore) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	query := s.rebind(`SELECT ` + assignmentReturning + ` FROM user_app_assignments WHERE id = ?`)
	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying assignment: %w", err)
	}
	return a, nil
}

// UpdateAssignment updates the mutable fields of an assignment by ID.
func (s *SQLStore) UpdateAssignment(ctx context.Context, a *Assignment) error {
	query := s.rebind(`
		UPDATE user_app_assignments
		SET role_in_app = ?, license_type = ?, access_level = ?, assigned_on = ?, status = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		a.RoleInApp, a.LicenseType, a.AccessLevel, a.AssignedOn, a.Status, a.ID)
	if err != nil {
		return fmt.Errorf("updating assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAssignment removes an assignment row.
func (s *SQLStore) DeleteAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM user_app_assignments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Expanded view reads

const detailColumns = `id, user_id, app_id, COALESCE(role_in_app, ''), COALESCE(license_type, ''),
	COALESCE(access_level, ''), assigned_on, status, created_at,
	user_name, email, COALESCE(team, ''), COALESCE("group", ''),
	app_name, COALESCE(category, ''), COALESCE(vendor, ''), COALESCE(tier, '')`

func scanDetail(row interface{ Scan(...any) error }) (*AssignmentDetail, error) {
	var d AssignmentDetail
	var createdAt string
	err := row.Scan(&d.ID, &d.UserID, &d.AppID, &d.RoleInApp, &d.LicenseType,
		&d.AccessLevel, &d.AssignedOn, &d.Status, &createdAt,
		&d.UserName, &d.Email, &d.Team, &d.Group,
		&d.AppName, &d.Category, &d.Vendor, &d.Tier)
	if err != nil {
		return nil, err
	}
	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &d, nil
}

func (s *SQLStore) listDetails(ctx context.Context, where string, arg any) ([]*AssignmentDetail, error) {
	query := s.rebind(`
		SELECT ` + detailColumns + `
		FROM assignments_expanded
		WHERE ` + where + ` = ?
		ORDER BY assigned_on DESC, created_at DESC
	`)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying assignments_expanded: %w", err)
	}
	defer rows.Close()

	var details []*AssignmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListUserAssignments returns a user's assignments from the expanded view,
// newest assigned_on first.
func (s *SQLStore) ListUserAssignments(ctx context.Context, userID string) ([]*AssignmentDetail, error) {
	return s.listDetails(ctx, "user_id", userID)
}

// ListAppAssignments returns an app's assignments from the expanded view.
func (s *SQLStore) ListAppAssignments(ctx context.Context, appID string) ([]*AssignmentDetail, error) {
	return s.listDetails(ctx, "app_id", appID)
}

// ListAssignmentsByEmail returns the assignments of the user with the given
// email, newest assigned_on first.
func (s *SQLStore) ListAssignmentsByEmail(ctx context.Context, email string) ([]*AssignmentDetail, error) {
	return s.listDetails(ctx, "email", NormalizeEmail(email))
}

// Anti-joins

// UnassignedApps returns apps with no assignment row for the given user,
// ordered by name. The subquery is parameterized; no identifiers are ever
// interpolated into the predicate.
func (s *SQLStore) UnassignedApps(ctx context.Context, userID string) ([]*App, error) {
	query := s.rebind(`
		SELECT ` + appColumns + ` FROM apps
		WHERE id NOT IN (
			SELECT app_id FROM user_app_assignments WHERE user_id = ?
		)
		ORDER BY name
	`)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying unassigned apps: %w", err)
	}
	defer rows.Close()

	var apps []*App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning app: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// UnassignedUsers returns users with no assignment row for the given app,
// ordered by name.
func (s *SQLStore) UnassignedUsers(ctx context.Context, appID string) ([]*User, error) {
	query := s.rebind(`
		SELECT ` + userColumns + ` FROM users
		WHERE id NOT IN (
			SELECT user_id FROM user_app_assignments WHERE app_id = ?
		)
		ORDER BY name
	`)

	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("querying unassigned users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
