// ABOUTME: Dashboard tools expose user, app, and assignment operations over MCP.
// ABOUTME: Six tools backed by the store: health, listing, assignment, and creation.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/appdeck/appdeck-gateway/internal/store"
)

var (
	emailRe     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	startDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// DashboardTools creates the tool set backed by the given store.
func DashboardTools(s store.Store) []*Tool {
	d := &dashboardHandlers{store: s}
	return []*Tool{
		{
			Name:        "health",
			Description: "Simple status ping",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			Handler:     d.Health,
		},
		{
			Name:        "list_users",
			Description: "Return users (optionally filtered by name)",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"search":{"type":"string"},"limit":{"type":"integer","minimum":1,"maximum":100,"default":25}}}`),
			Handler:     d.ListUsers,
		},
		{
			Name:        "list_apps",
			Description: "Return apps (optionally by category)",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"category":{"type":"string"},"limit":{"type":"integer","minimum":1,"maximum":100,"default":25}}}`),
			Handler:     d.ListApps,
		},
		{
			Name:        "assign_user_to_app",
			Description: "Creates or updates a user→app assignment",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"user_email":{"type":"string","format":"email"},"app_name":{"type":"string"},"role_in_app":{"type":"string","default":"Member"},"license_type":{"type":"string","default":"Seat"},"access_level":{"type":"string","default":"Default"},"status":{"type":"string","enum":["active","revoked"],"default":"active"}},"required":["user_email","app_name"]}`),
			Handler:     d.AssignUserToApp,
		},
		{
			Name:        "list_user_assignments",
			Description: "Apps assigned to a user",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"user_email":{"type":"string","format":"email"}},"required":["user_email"]}`),
			Handler:     d.ListUserAssignments,
		},
		{
			Name:        "create_user",
			Description: "Create a new user in the 'users' table",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string","minLength":1},"email":{"type":"string","format":"email"},"job_role":{"type":"string"},"start_date":{"type":"string","pattern":"^\\d{4}-\\d{2}-\\d{2}$"},"group":{"type":"string"},"team":{"type":"string"}},"required":["name","email"]}`),
			Handler:     d.CreateUser,
		},
	}
}

type dashboardHandlers struct {
	store store.Store
}

func (d *dashboardHandlers) Health(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

type listUsersInput struct {
	Search string `json:"search"`
	Limit  int    `json:"limit"`
}

func (d *dashboardHandlers) ListUsers(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listUsersInput
	if err := unmarshalInput(input, &in); err != nil {
		return nil, err
	}

	users, err := d.store.ListUsers(ctx, in.Search, in.Limit)
	if err != nil {
		return nil, err
	}

	return json.Marshal(users)
}

type listAppsInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (d *dashboardHandlers) ListApps(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listAppsInput
	if err := unmarshalInput(input, &in); err != nil {
		return nil, err
	}

	apps, err := d.store.ListApps(ctx, store.AppFilter{
		Category: in.Category,
		Limit:    in.Limit,
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(apps)
}

type assignInput struct {
	UserEmail   string `json:"user_email"`
	AppName     string `json:"app_name"`
	RoleInApp   string `json:"role_in_app"`
	LicenseType string `json:"license_type"`
	AccessLevel string `json:"access_level"`
	Status      string `json:"status"`
}

func (d *dashboardHandlers) AssignUserToApp(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in assignInput
	if err := unmarshalInput(input, &in); err != nil {
		return nil, err
	}

	if !emailRe.MatchString(in.UserEmail) {
		return nil, fmt.Errorf("user_email is not a valid email address")
	}
	if in.AppName == "" {
		return nil, fmt.Errorf("app_name is required")
	}

	// Fill in the documented defaults before validating the enum
	if in.RoleInApp == "" {
		in.RoleInApp = "Member"
	}
	if in.LicenseType == "" {
		in.LicenseType = "Seat"
	}
	if in.AccessLevel == "" {
		in.AccessLevel = "Default"
	}
	if in.Status == "" {
		in.Status = store.AssignmentStatusActive
	}
	if in.Status != store.AssignmentStatusActive && in.Status != store.AssignmentStatusRevoked {
		return nil, fmt.Errorf("status must be %q or %q", store.AssignmentStatusActive, store.AssignmentStatusRevoked)
	}

	user, err := d.store.GetUserByEmail(ctx, in.UserEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("User not found: %s", in.UserEmail)
		}
		return nil, err
	}

	app, err := d.store.GetAppByName(ctx, in.AppName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("App not found: %s", in.AppName)
		}
		return nil, err
	}

	assignment, err := d.store.UpsertAssignment(ctx, &store.Assignment{
		UserID:      user.ID,
		AppID:       app.ID,
		RoleInApp:   in.RoleInApp,
		LicenseType: in.LicenseType,
		AccessLevel: in.AccessLevel,
		Status:      in.Status,
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(assignment)
}

type listAssignmentsInput struct {
	UserEmail string `json:"user_email"`
}

// assignmentRow is the per-assignment shape returned by list_user_assignments.
type assignmentRow struct {
	AppName     string `json:"app_name"`
	RoleInApp   string `json:"role_in_app,omitempty"`
	LicenseType string `json:"license_type,omitempty"`
	Status      string `json:"status"`
	AssignedOn  string `json:"assigned_on"`
	Email       string `json:"email"`
	Team        string `json:"team,omitempty"`
	Group       string `json:"group,omitempty"`
}

func (d *dashboardHandlers) ListUserAssignments(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listAssignmentsInput
	if err := unmarshalInput(input, &in); err != nil {
		return nil, err
	}

	if !emailRe.MatchString(in.UserEmail) {
		return nil, fmt.Errorf("user_email is not a valid email address")
	}

	details, err := d.store.ListAssignmentsByEmail(ctx, in.UserEmail)
	if err != nil {
		return nil, err
	}

	rows := make([]assignmentRow, len(details))
	for i, det := range details {
		rows[i] = assignmentRow{
			AppName:     det.AppName,
			RoleInApp:   det.RoleInApp,
			LicenseType: det.LicenseType,
			Status:      det.Status,
			AssignedOn:  det.AssignedOn,
			Email:       det.Email,
			Team:        det.Team,
			Group:       det.Group,
		}
	}

	return json.Marshal(rows)
}

type createUserInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	JobRole   string `json:"job_role"`
	StartDate string `json:"start_date"`
	Group     string `json:"group"`
	Team      string `json:"team"`
}

func (d *dashboardHandlers) CreateUser(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createUserInput
	if err := unmarshalInput(input, &in); err != nil {
		return nil, err
	}

	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !emailRe.MatchString(in.Email) {
		return nil, fmt.Errorf("email is not a valid email address")
	}
	if in.StartDate != "" && !startDateRe.MatchString(in.StartDate) {
		return nil, fmt.Errorf("start_date must be YYYY-MM-DD")
	}

	user := &store.User{
		Name:      in.Name,
		Email:     in.Email,
		JobRole:   in.JobRole,
		StartDate: in.StartDate,
		Group:     in.Group,
		Team:      in.Team,
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, errors.New("A user with that email already exists.")
		}
		return nil, err
	}

	return json.Marshal(user)
}

// unmarshalInput decodes a tool arguments object, treating empty input as {}.
func unmarshalInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
