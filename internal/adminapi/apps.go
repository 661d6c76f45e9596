// ABOUTME: App endpoints for the admin API: catalog list, CRUD, related views.
// ABOUTME: App detail renders the notes markdown to HTML for the dashboard.

package adminapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/appdeck/appdeck-gateway/internal/store"
)

// appRequest is the POST/PUT body for apps. Only name is required.
type appRequest struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	Vendor          string `json:"vendor"`
	Tier            string `json:"tier"`
	OwnerTeam       string `json:"owner_team"`
	SSORequired     bool   `json:"sso_required"`
	DataSensitivity string `json:"data_sensitivity"`
	Status          string `json:"status"`
	WebsiteURL      string `json:"website_url"`
	Notes           string `json:"notes"`
}

func (req *appRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	switch req.Status {
	case "", store.AppStatusActive, store.AppStatusInactive, store.AppStatusDeprecated:
		return ""
	default:
		return "status must be active, inactive, or deprecated"
	}
}

// appDetail is an app plus its notes rendered to HTML.
type appDetail struct {
	*store.App
	NotesHTML string `json:"notes_html,omitempty"`
}

func (s *Server) handleAppsList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	apps, err := s.store.ListApps(r.Context(), store.AppFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleAppCreate(w http.ResponseWriter, r *http.Request) {
	var req appRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	app := &store.App{
		Name:            strings.TrimSpace(req.Name),
		Category:        req.Category,
		Vendor:          req.Vendor,
		Tier:            req.Tier,
		OwnerTeam:       req.OwnerTeam,
		SSORequired:     req.SSORequired,
		DataSensitivity: req.DataSensitivity,
		Status:          req.Status,
		WebsiteURL:      req.WebsiteURL,
		Notes:           req.Notes,
	}
	if err := s.store.CreateApp(r.Context(), app); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("app created", "id", app.ID, "name", app.Name)
	s.writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleAppGet(w http.ResponseWriter, r *http.Request) {
	app, err := s.store.GetApp(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	detail := appDetail{App: app}
	if app.Notes != "" {
		var htmlBuf bytes.Buffer
		if err := goldmark.Convert([]byte(app.Notes), &htmlBuf); err != nil {
			s.logger.Error("failed to render app notes", "app", app.ID, "error", err)
		} else {
			detail.NotesHTML = htmlBuf.String()
		}
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleAppUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetApp(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var req appRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	app := &store.App{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		Category:        req.Category,
		Vendor:          req.Vendor,
		Tier:            req.Tier,
		OwnerTeam:       req.OwnerTeam,
		SSORequired:     req.SSORequired,
		DataSensitivity: req.DataSensitivity,
		Status:          req.Status,
		WebsiteURL:      req.WebsiteURL,
		Notes:           req.Notes,
		CreatedAt:       existing.CreatedAt,
	}
	if app.Status == "" {
		app.Status = store.AppStatusActive
	}
	if err := s.store.UpdateApp(r.Context(), app); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleAppDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteApp(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("app deleted", "id", id)
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleAppAssignments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetApp(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	assignments, err := s.store.ListAppAssignments(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assignments)
}

func (s *Server) handleAppUnassignedUsers(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetApp(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	users, err := s.store.UnassignedUsers(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}
