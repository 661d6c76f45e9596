// ABOUTME: Store interface and data types for appdeck-gateway persistence
// ABOUTME: Defines User, App, Assignment structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user whose email is already taken
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateApp is returned when creating an app whose name is already taken
var ErrDuplicateApp = errors.New("app already exists")

// App status values
const (
	AppStatusActive     = "active"
	AppStatusInactive   = "inactive"
	AppStatusDeprecated = "deprecated"
)

// Assignment status values
const (
	AssignmentStatusActive  = "active"
	AssignmentStatusRevoked = "revoked"
)

// List limit bounds. Callers may request 1-100 rows; zero means DefaultLimit.
const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ClampLimit normalizes a requested row limit into the allowed range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeEmail lower-cases and trims an email address. Emails are stored
// case-normalized so the uniqueness constraint is effectively case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User represents a person who can be assigned to applications.
// Optional fields are empty strings when unset; StartDate is YYYY-MM-DD.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	JobRole   string    `json:"job_role,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	Group     string    `json:"group,omitempty"`
	Team      string    `json:"team,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// App represents a SaaS application in the catalog.
type App struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category,omitempty"`
	Vendor          string    `json:"vendor,omitempty"`
	Tier            string    `json:"tier,omitempty"`
	OwnerTeam       string    `json:"owner_team,omitempty"`
	SSORequired     bool      `json:"sso_required"`
	DataSensitivity string    `json:"data_sensitivity,omitempty"`
	Status          string    `json:"status"`
	WebsiteURL      string    `json:"website_url,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Assignment links one user to one application. At most one row exists per
// (user_id, app_id) pair; writes through UpsertAssignment preserve that.
type Assignment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AppID       string    `json:"app_id"`
	RoleInApp   string    `json:"role_in_app,omitempty"`
	LicenseType string    `json:"license_type,omitempty"`
	AccessLevel string    `json:"access_level,omitempty"`
	AssignedOn  string    `json:"assigned_on"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssignmentDetail is a row from the assignments_expanded view: an assignment
// joined with its user and app for display. Never written directly.
type AssignmentDetail struct {
	Assignment
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Team     string `json:"team,omitempty"`
	Group    string `json:"group,omitempty"`
	AppName  string `json:"app_name"`
	Category string `json:"category,omitempty"`
	Vendor   string `json:"vendor,omitempty"`
	Tier     string `json:"tier,omitempty"`
}

// AppFilter narrows ListApps results. Zero values match everything.
type AppFilter struct {
	Search   string // case-insensitive substring on name
	Category string // exact match
	Limit    int    // clamped via ClampLimit
}

// Store defines the interface for user, app, and assignment persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, search string, limit int) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error

	// Apps
	CreateApp(ctx context.Context, app *App) error
	GetApp(ctx context.Context, id string) (*App, error)
	GetAppByName(ctx context.Context, name string) (*App, error)
	ListApps(ctx context.Context, filter AppFilter) ([]*App, error)
	UpdateApp(ctx context.Context, app *App) error
	DeleteApp(ctx context.Context, id string) error

	// Assignments. UpsertAssignment inserts or, on a (user_id, app_id)
	// conflict, overwrites role/license/access/status of the existing row and
	// returns the resulting row.
	UpsertAssignment(ctx context.Context, a *Assignment) (*Assignment, error)
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	UpdateAssignment(ctx context.Context, a *Assignment) error
	DeleteAssignment(ctx context.Context, id string) error

	// Expanded-view reads, ordered assigned_on descending
	ListUserAssignments(ctx context.Context, userID string) ([]*AssignmentDetail, error)
	ListAppAssignments(ctx context.Context, appID string) ([]*AssignmentDetail, error)
	ListAssignmentsByEmail(ctx context.Context, email string) ([]*AssignmentDetail, error)

	// Anti-joins: entities with no assignment row linking them to the argument
	UnassignedApps(ctx context.Context, userID string) ([]*App, error)
	UnassignedUsers(ctx context.Context, appID string) ([]*User, error)

	// Close releases any resources held by the store
	Close() error
}
