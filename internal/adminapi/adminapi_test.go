// ABOUTME: Tests for the admin API: auth enforcement, CRUD flows, statuses.
// ABOUTME: Runs the full mux against a mock store with real JWT keys.

package adminapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/appdeck/appdeck-gateway/internal/auth"
	"github.com/appdeck/appdeck-gateway/internal/store"
)

var testSecret = []byte("test-secret-for-adminapi")

// testAPI wires a full admin API over a fresh mock store and returns keys
// for both roles.
type testAPI struct {
	store      *store.MockStore
	mux        *http.ServeMux
	serviceKey string
	anonKey    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	verifier := auth.NewJWTVerifier(testSecret)
	serviceKey, err := verifier.Generate(auth.RoleServiceRole, time.Hour)
	if err != nil {
		t.Fatalf("generating service key: %v", err)
	}
	anonKey, err := verifier.Generate(auth.RoleAnon, time.Hour)
	if err != nil {
		t.Fatalf("generating anon key: %v", err)
	}

	mockStore := store.NewMockStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	New(mockStore, verifier, logger).RegisterRoutes(mux)

	return &testAPI{
		store:      mockStore,
		mux:        mux,
		serviceKey: serviceKey,
		anonKey:    anonKey,
	}
}

// do runs one request through the mux. An empty key sends no Authorization.
func (a *testAPI) do(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func (a *testAPI) seedUser(t *testing.T, name, email string) *store.User {
	t.Helper()
	user := &store.User{Name: name, Email: email}
	if err := a.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func (a *testAPI) seedApp(t *testing.T, name, category string) *store.App {
	t.Helper()
	app := &store.App{Name: name, Category: category}
	if err := a.store.CreateApp(context.Background(), app); err != nil {
		t.Fatalf("seeding app: %v", err)
	}
	return app
}

// --- auth ---

func TestHealth_NoAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decode(t, rec, &body)
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
}

func TestRead_RequiresKey(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/users", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/users", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d, want 401", rec.Code)
	}
}

func TestRead_AnonKeyAllowed(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser(t, "Alice Park", "alice@company.com")

	rec := api.do(t, http.MethodGet, "/api/users", api.anonKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var users []*store.User
	decode(t, rec, &users)
	if len(users) != 1 || users[0].Name != "Alice Park" {
		t.Errorf("users = %+v", users)
	}
}

func TestWrite_AnonKeyForbidden(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/users", api.anonKey,
		`{"name":"Alice Park","email":"alice@company.com"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

// --- users ---

func TestUserCreate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/users", api.serviceKey,
		`{"name":"Alice Park","email":"Alice@Company.com","team":"Platform"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var user store.User
	decode(t, rec, &user)
	if user.ID == "" {
		t.Error("ID not assigned")
	}
	if user.Email != "alice@company.com" {
		t.Errorf("email = %q, want lower-cased", user.Email)
	}
	if user.Team != "Platform" {
		t.Errorf("team = %q", user.Team)
	}
}

func TestUserCreate_Validation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@b.com"}`},
		{"missing email", `{"name":"Alice"}`},
		{"bad email", `{"name":"Alice","email":"not-an-email"}`},
		{"bad start date", `{"name":"Alice","email":"a@b.com","start_date":"June 1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/users", api.serviceKey, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser(t, "Alice Park", "alice@company.com")

	rec := api.do(t, http.MethodPost, "/api/users", api.serviceKey,
		`{"name":"Other Alice","email":"ALICE@company.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "A user with that email already exists." {
		t.Errorf("error = %q", body["error"])
	}
}

func TestUserGet_NotFound(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/users/no-such-id", api.anonKey, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUserUpdate(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Alice Park", "alice@company.com")

	rec := api.do(t, http.MethodPut, "/api/users/"+user.ID, api.serviceKey,
		`{"name":"Alice Park-Nguyen","email":"alice@company.com","team":"Security"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var updated store.User
	decode(t, rec, &updated)
	if updated.Name != "Alice Park-Nguyen" || updated.Team != "Security" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUserDelete(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Alice Park", "alice@company.com")

	rec := api.do(t, http.MethodDelete, "/api/users/"+user.ID, api.serviceKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/users/"+user.ID, api.anonKey, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
}

func TestUserAssignmentsAndUnassignedApps(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Alice Park", "alice@company.com")
	assigned := api.seedApp(t, "Figma", "Design")
	unassigned := api.seedApp(t, "Notion", "Productivity")

	_, err := api.store.UpsertAssignment(context.Background(), &store.Assignment{
		UserID: user.ID, AppID: assigned.ID, Status: store.AssignmentStatusActive,
	})
	if err != nil {
		t.Fatalf("seeding assignment: %v", err)
	}

	rec := api.do(t, http.MethodGet, "/api/users/"+user.ID+"/assignments", api.anonKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("assignments status = %d", rec.Code)
	}
	var details []*store.AssignmentDetail
	decode(t, rec, &details)
	if len(details) != 1 || details[0].AppName != "Figma" {
		t.Errorf("assignments = %+v", details)
	}

	rec = api.do(t, http.MethodGet, "/api/users/"+user.ID+"/unassigned-apps", api.anonKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unassigned-apps status = %d", rec.Code)
	}
	var apps []*store.App
	decode(t, rec, &apps)
	if len(apps) != 1 || apps[0].ID != unassigned.ID {
		t.Errorf("unassigned apps = %+v", apps)
	}

	rec = api.do(t, http.MethodGet, "/api/users/no-such-id/assignments", api.anonKey, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

// --- apps ---

func TestAppCreate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/apps", api.serviceKey,
		`{"name":"Figma","category":"Design","sso_required":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var app store.App
	decode(t, rec, &app)
	if app.Status != store.AppStatusActive {
		t.Errorf("status = %q, want default active", app.Status)
	}
	if !app.SSORequired {
		t.Error("sso_required not set")
	}
}

func TestAppCreate_Duplicate(t *testing.T) {
	api := newTestAPI(t)
	api.seedApp(t, "Figma", "Design")

	rec := api.do(t, http.MethodPost, "/api/apps", api.serviceKey, `{"name":"Figma"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "An app with that name already exists." {
		t.Errorf("error = %q", body["error"])
	}
}

func TestAppCreate_InvalidStatus(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/apps", api.serviceKey,
		`{"name":"Figma","status":"retired"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAppGet_RendersNotes(t *testing.T) {
	api := newTestAPI(t)
	app := &store.App{Name: "Figma", Notes: "# Figma\n\nDesign **tool**."}
	if err := api.store.CreateApp(context.Background(), app); err != nil {
		t.Fatalf("seeding app: %v", err)
	}

	rec := api.do(t, http.MethodGet, "/api/apps/"+app.ID, api.anonKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var detail struct {
		store.App
		NotesHTML string `json:"notes_html"`
	}
	decode(t, rec, &detail)
	if !strings.Contains(detail.NotesHTML, "<h1>Figma</h1>") {
		t.Errorf("notes_html missing heading: %q", detail.NotesHTML)
	}
	if !strings.Contains(detail.NotesHTML, "<strong>tool</strong>") {
		t.Errorf("notes_html missing emphasis: %q", detail.NotesHTML)
	}
}

func TestAppGet_NoNotes(t *testing.T) {
	api := newTestAPI(t)
	app := api.seedApp(t, "Figma", "Design")

	rec := api.do(t, http.MethodGet, "/api/apps/"+app.ID, api.anonKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "notes_html") {
		t.Errorf("notes_html present for app without notes: %s", rec.Body.String())
	}
}

func TestAppsList_Filters(t *testing.T) {
	api := newTestAPI(t)
	api.seedApp(t, "Figma", "Design")
	api.seedApp(t, "Sketch", "Design")
	api.seedApp(t, "Notion", "Productivity")

	rec := api.do(t, http.MethodGet, "/api/apps?category=Design", api.anonKey, "")
	var apps []*store.App
	decode(t, rec, &apps)
	if len(apps) != 2 {
		t.Errorf("category filter returned %d apps, want 2", len(apps))
	}

	rec = api.do(t, http.MethodGet, "/api/apps?search=not", api.anonKey, "")
	apps = nil
	decode(t, rec, &apps)
	if len(apps) != 1 || apps[0].Name != "Notion" {
		t.Errorf("search returned %+v", apps)
	}
}

func TestAppUpdateAndDelete(t *testing.T) {
	api := newTestAPI(t)
	app := api.seedApp(t, "Figma", "Design")

	rec := api.do(t, http.MethodPut, "/api/apps/"+app.ID, api.serviceKey,
		`{"name":"Figma","category":"Design","status":"deprecated"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated store.App
	decode(t, rec, &updated)
	if updated.Status != store.AppStatusDeprecated {
		t.Errorf("status = %q, want deprecated", updated.Status)
	}

	rec = api.do(t, http.MethodDelete, "/api/apps/"+app.ID, api.serviceKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = api.do(t, http.MethodGet, "/api/apps/"+app.ID, api.anonKey, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
}

// --- assignments ---

func TestAssignmentUpsert(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Alice Park", "alice@company.com")
	app := api.seedApp(t, "Figma", "Design")

	rec := api.do(t, http.MethodPost, "/api/assignments", api.serviceKey,
		`{"user_id":"`+user.ID+`","app_id":"`+app.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var first store.Assignment
	decode(t, rec, &first)
	if first.RoleInApp != "Member" || first.LicenseType != "Seat" ||
		first.AccessLevel != "Default" || first.Status != store.AssignmentStatusActive {
		t.Errorf("defaults not applied: %+v", first)
	}

	// Second POST for the same pair updates in place
	rec = api.do(t, http.MethodPost, "/api/assignments", api.serviceKey,
		`{"user_id":"`+user.ID+`","app_id":"`+app.ID+`","role_in_app":"Admin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second upsert status = %d", rec.Code)
	}
	var second store.Assignment
	decode(t, rec, &second)
	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %q vs %q", second.ID, first.ID)
	}
	if second.RoleInApp != "Admin" {
		t.Errorf("role = %q, want Admin", second.RoleInApp)
	}
}

func TestAssignmentUpsert_UnknownUser(t *testing.T) {
	api := newTestAPI(t)
	app := api.seedApp(t, "Figma", "Design")

	rec := api.do(t, http.MethodPost, "/api/assignments", api.serviceKey,
		`{"user_id":"no-such-user","app_id":"`+app.ID+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAssignmentUpdateAndDelete(t *testing.T) {
	api := newTestAPI(t)
	user := api.seedUser(t, "Alice Park", "alice@company.com")
	app := api.seedApp(t, "Figma", "Design")

	created, err := api.store.UpsertAssignment(context.Background(), &store.Assignment{
		UserID: user.ID, AppID: app.ID, Status: store.AssignmentStatusActive,
	})
	if err != nil {
		t.Fatalf("seeding assignment: %v", err)
	}

	rec := api.do(t, http.MethodPut, "/api/assignments/"+created.ID, api.serviceKey,
		`{"status":"revoked"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated store.Assignment
	decode(t, rec, &updated)
	if updated.Status != store.AssignmentStatusRevoked {
		t.Errorf("status = %q, want revoked", updated.Status)
	}
	if updated.UserID != user.ID || updated.AppID != app.ID {
		t.Errorf("user/app changed on update: %+v", updated)
	}

	rec = api.do(t, http.MethodDelete, "/api/assignments/"+created.ID, api.serviceKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = api.do(t, http.MethodDelete, "/api/assignments/"+created.ID, api.serviceKey, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestAssignmentUpsert_InvalidStatus(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/assignments", api.serviceKey,
		`{"user_id":"u","app_id":"a","status":"paused"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/users", api.serviceKey, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
