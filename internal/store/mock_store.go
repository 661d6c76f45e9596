// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	users       map[string]*User       // keyed by user ID
	apps        map[string]*App        // keyed by app ID
	assignments map[string]*Assignment // keyed by assignment ID
	pairIndex   map[string]string      // keyed by "userID:appID" -> assignment ID
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:       make(map[string]*User),
		apps:        make(map[string]*App),
		assignments: make(map[string]*Assignment),
		pairIndex:   make(map[string]string),
	}
}

func pairKey(userID, appID string) string {
	return userID + ":" + appID
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = NormalizeEmail(user.Email)

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	u := *user
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns users ordered by name with the same filter semantics as
// the SQL store.
func (m *MockStore) ListUsers(ctx context.Context, search string, limit int) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*User
	for _, u := range m.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(search)) {
			continue
		}
		copied := *u
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	if n := ClampLimit(limit); len(users) > n {
		users = users[:n]
	}
	return users, nil
}

// UpdateUser updates a stored user.
func (m *MockStore) UpdateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	user.Email = NormalizeEmail(user.Email)
	for id, u := range m.users {
		if id != user.ID && u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	copied := *user
	copied.CreatedAt = existing.CreatedAt
	m.users[user.ID] = &copied
	return nil
}

// DeleteUser removes a user and its assignments.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for aid, a := range m.assignments {
		if a.UserID == id {
			delete(m.assignments, aid)
			delete(m.pairIndex, pairKey(a.UserID, a.AppID))
		}
	}
	return nil
}

// CreateApp stores a new app.
func (m *MockStore) CreateApp(ctx context.Context, app *App) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = AppStatusActive
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}

	for _, a := range m.apps {
		if a.Name == app.Name {
			return ErrDuplicateApp
		}
	}

	a := *app
	m.apps[a.ID] = &a
	return nil
}

// GetApp retrieves an app by ID.
func (m *MockStore) GetApp(ctx context.Context, id string) (*App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// GetAppByName retrieves an app by its exact name.
func (m *MockStore) GetAppByName(ctx context.Context, name string) (*App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.apps {
		if a.Name == name {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// ListApps returns apps ordered by name with the same filter semantics as the
// SQL store.
func (m *MockStore) ListApps(ctx context.Context, filter AppFilter) ([]*App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var apps []*App
	for _, a := range m.apps {
		if filter.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		copied := *a
		apps = append(apps, &copied)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })

	if n := ClampLimit(filter.Limit); len(apps) > n {
		apps = apps[:n]
	}
	return apps, nil
}

// UpdateApp updates a stored app.
func (m *MockStore) UpdateApp(ctx context.Context, app *App) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.apps[app.ID]
	if !ok {
		return ErrNotFound
	}
	for id, a := range m.apps {
		if id != app.ID && a.Name == app.Name {
			return ErrDuplicateApp
		}
	}

	copied := *app
	copied.CreatedAt = existing.CreatedAt
	m.apps[app.ID] = &copied
	return nil
}

// DeleteApp removes an app and its assignments.
func (m *MockStore) DeleteApp(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apps[id]; !ok {
		return ErrNotFound
	}
	delete(m.apps, id)
	for aid, a := range m.assignments {
		if a.AppID == id {
			delete(m.assignments, aid)
			delete(m.pairIndex, pairKey(a.UserID, a.AppID))
		}
	}
	return nil
}

// UpsertAssignment inserts or updates the assignment for the (user, app) pair.
func (m *MockStore) UpsertAssignment(ctx context.Context, a *Assignment) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[a.UserID]; !ok {
		return nil, ErrNotFound
	}
	if _, ok := m.apps[a.AppID]; !ok {
		return nil, ErrNotFound
	}

	status := a.Status
	if status == "" {
		status = AssignmentStatusActive
	}

	key := pairKey(a.UserID, a.AppID)
	if existingID, ok := m.pairIndex[key]; ok {
		existing := m.assignments[existingID]
		existing.RoleInApp = a.RoleInApp
		existing.LicenseType = a.LicenseType
		existing.AccessLevel = a.AccessLevel
		existing.Status = status
		copied := *existing
		return &copied, nil
	}

	created := *a
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	created.Status = status
	if created.AssignedOn == "" {
		created.AssignedOn = time.Now().UTC().Format("2006-01-02")
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	m.assignments[created.ID] = &created
	m.pairIndex[key] = created.ID

	copied := created
	return &copied, nil
}

// GetAssignment retrieves an assignment by ID.
func (m *MockStore) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// UpdateAssignment updates a stored assignment.
func (m *MockStore) UpdateAssignment(ctx context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.assignments[a.ID]
	if !ok {
		return ErrNotFound
	}
	existing.RoleInApp = a.RoleInApp
	existing.LicenseType = a.LicenseType
	existing.AccessLevel = a.AccessLevel
	existing.AssignedOn = a.AssignedOn
	existing.Status = a.Status
	return nil
}

// DeleteAssignment removes an assignment.
func (m *MockStore) DeleteAssignment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.assignments, id)
	delete(m.pairIndex, pairKey(a.UserID, a.AppID))
	return nil
}

func (m *MockStore) expand(a *Assignment) *AssignmentDetail {
	d := &AssignmentDetail{Assignment: *a}
	if u, ok := m.users[a.UserID]; ok {
		d.UserName = u.Name
		d.Email = u.Email
		d.Team = u.Team
		d.Group = u.Group
	}
	if app, ok := m.apps[a.AppID]; ok {
		d.AppName = app.Name
		d.Category = app.Category
		d.Vendor = app.Vendor
		d.Tier = app.Tier
	}
	return d
}

func (m *MockStore) listDetails(match func(*Assignment) bool) []*AssignmentDetail {
	var details []*AssignmentDetail
	for _, a := range m.assignments {
		if match(a) {
			details = append(details, m.expand(a))
		}
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].AssignedOn != details[j].AssignedOn {
			return details[i].AssignedOn > details[j].AssignedOn
		}
		return details[i].CreatedAt.After(details[j].CreatedAt)
	})
	return details
}

// ListUserAssignments returns a user's expanded assignments, newest first.
func (m *MockStore) ListUserAssignments(ctx context.Context, userID string) ([]*AssignmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listDetails(func(a *Assignment) bool { return a.UserID == userID }), nil
}

// ListAppAssignments returns an app's expanded assignments, newest first.
func (m *MockStore) ListAppAssignments(ctx context.Context, appID string) ([]*AssignmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listDetails(func(a *Assignment) bool { return a.AppID == appID }), nil
}

// ListAssignmentsByEmail returns the assignments of the user with the given email.
func (m *MockStore) ListAssignmentsByEmail(ctx context.Context, email string) ([]*AssignmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = NormalizeEmail(email)
	var userID string
	for _, u := range m.users {
		if u.Email == email {
			userID = u.ID
			break
		}
	}
	return m.listDetails(func(a *Assignment) bool { return a.UserID == userID && userID != "" }), nil
}

// UnassignedApps returns apps with no assignment for the given user.
func (m *MockStore) UnassignedApps(ctx context.Context, userID string) ([]*App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var apps []*App
	for _, a := range m.apps {
		if _, ok := m.pairIndex[pairKey(userID, a.ID)]; ok {
			continue
		}
		copied := *a
		apps = append(apps, &copied)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps, nil
}

// UnassignedUsers returns users with no assignment for the given app.
func (m *MockStore) UnassignedUsers(ctx context.Context, appID string) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*User
	for _, u := range m.users {
		if _, ok := m.pairIndex[pairKey(u.ID, appID)]; ok {
			continue
		}
		copied := *u
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}
