// ABOUTME: JSON API serving the dashboard's user, app, and assignment data.
// ABOUTME: Reads need any valid key; writes need the service_role key.

package adminapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/appdeck/appdeck-gateway/internal/auth"
	"github.com/appdeck/appdeck-gateway/internal/store"
)

// maxBodySize caps request bodies (1MB).
const maxBodySize = 1 << 20

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Server holds the admin API handlers and their dependencies.
type Server struct {
	store    store.Store
	verifier auth.TokenVerifier
	logger   *slog.Logger
}

// New creates an admin API server backed by the given store and key verifier.
func New(s store.Store, verifier auth.TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    s,
		verifier: verifier,
		logger:   logger.With("component", "adminapi"),
	}
}

// RegisterRoutes registers all admin API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	authMW := auth.HTTPAuthMiddleware(s.verifier)
	writeMW := auth.RequireWriteHTTP()

	read := func(h http.HandlerFunc) http.HandlerFunc {
		return authMW(h).ServeHTTP
	}
	write := func(h http.HandlerFunc) http.HandlerFunc {
		return authMW(writeMW(h)).ServeHTTP
	}

	// Health has no auth so load balancers can probe it
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Users
	mux.HandleFunc("GET /api/users", read(s.handleUsersList))
	mux.HandleFunc("POST /api/users", write(s.handleUserCreate))
	mux.HandleFunc("GET /api/users/{id}", read(s.handleUserGet))
	mux.HandleFunc("PUT /api/users/{id}", write(s.handleUserUpdate))
	mux.HandleFunc("DELETE /api/users/{id}", write(s.handleUserDelete))
	mux.HandleFunc("GET /api/users/{id}/assignments", read(s.handleUserAssignments))
	mux.HandleFunc("GET /api/users/{id}/unassigned-apps", read(s.handleUserUnassignedApps))

	// Apps
	mux.HandleFunc("GET /api/apps", read(s.handleAppsList))
	mux.HandleFunc("POST /api/apps", write(s.handleAppCreate))
	mux.HandleFunc("GET /api/apps/{id}", read(s.handleAppGet))
	mux.HandleFunc("PUT /api/apps/{id}", write(s.handleAppUpdate))
	mux.HandleFunc("DELETE /api/apps/{id}", write(s.handleAppDelete))
	mux.HandleFunc("GET /api/apps/{id}/assignments", read(s.handleAppAssignments))
	mux.HandleFunc("GET /api/apps/{id}/unassigned-users", read(s.handleAppUnassignedUsers))

	// Assignments
	mux.HandleFunc("POST /api/assignments", write(s.handleAssignmentUpsert))
	mux.HandleFunc("PUT /api/assignments/{id}", write(s.handleAssignmentUpdate))
	mux.HandleFunc("DELETE /api/assignments/{id}", write(s.handleAssignmentDelete))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

// readJSON decodes a bounded request body into v. A 400 has already been
// written when it returns false.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if int64(len(body)) > maxBodySize {
		s.writeError(w, http.StatusBadRequest, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeStoreError maps store failures onto HTTP statuses. The 409 messages
// match what the dashboard shows users, so keep them friendly.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		s.writeError(w, http.StatusConflict, "A user with that email already exists.")
	case errors.Is(err, store.ErrDuplicateApp):
		s.writeError(w, http.StatusConflict, "An app with that name already exists.")
	default:
		s.logger.Error("store operation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
