// ABOUTME: User endpoints for the admin API: list, CRUD, and related views.
// ABOUTME: Emails are validated and stored lower-case; deletes cascade.

package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/appdeck/appdeck-gateway/internal/store"
)

// userRequest is the POST/PUT body for users. All fields but name and email
// are optional.
type userRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	JobRole   string `json:"job_role"`
	StartDate string `json:"start_date"`
	Group     string `json:"group"`
	Team      string `json:"team"`
}

// validate reports the first problem with the request, or "".
func (req *userRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if !emailRe.MatchString(strings.TrimSpace(req.Email)) {
		return "invalid email address"
	}
	if req.StartDate != "" && !dateRe.MatchString(req.StartDate) {
		return "start_date must be YYYY-MM-DD"
	}
	return ""
}

func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := s.store.ListUsers(r.Context(), search, limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	user := &store.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		JobRole:   req.JobRole,
		StartDate: req.StartDate,
		Group:     req.Group,
		Team:      req.Team,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("user created", "id", user.ID, "email", user.Email)
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var req userRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	user := &store.User{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		JobRole:   req.JobRole,
		StartDate: req.StartDate,
		Group:     req.Group,
		Team:      req.Team,
		CreatedAt: existing.CreatedAt,
	}
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeStoreError(w, err)
		return
	}
	user.Email = store.NormalizeEmail(user.Email)
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("user deleted", "id", id)
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleUserAssignments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetUser(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	assignments, err := s.store.ListUserAssignments(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assignments)
}

func (s *Server) handleUserUnassignedApps(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetUser(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	apps, err := s.store.UnassignedApps(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apps)
}
