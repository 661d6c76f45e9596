// ABOUTME: Assignment endpoints for the admin API: upsert, update, delete.
// ABOUTME: POST upserts on the (user_id, app_id) pair and fills defaults.

package adminapi

import (
	"net/http"

	"github.com/appdeck/appdeck-gateway/internal/store"
)

// assignmentRequest is the POST/PUT body for assignments.
type assignmentRequest struct {
	UserID      string `json:"user_id"`
	AppID       string `json:"app_id"`
	RoleInApp   string `json:"role_in_app"`
	LicenseType string `json:"license_type"`
	AccessLevel string `json:"access_level"`
	AssignedOn  string `json:"assigned_on"`
	Status      string `json:"status"`
}

func (req *assignmentRequest) validate() string {
	if req.UserID == "" {
		return "user_id is required"
	}
	if req.AppID == "" {
		return "app_id is required"
	}
	if req.AssignedOn != "" && !dateRe.MatchString(req.AssignedOn) {
		return "assigned_on must be YYYY-MM-DD"
	}
	switch req.Status {
	case "", store.AssignmentStatusActive, store.AssignmentStatusRevoked:
		return ""
	default:
		return "status must be active or revoked"
	}
}

// fillDefaults applies the same defaults the assignment tool uses.
func (req *assignmentRequest) fillDefaults() {
	if req.RoleInApp == "" {
		req.RoleInApp = "Member"
	}
	if req.LicenseType == "" {
		req.LicenseType = "Seat"
	}
	if req.AccessLevel == "" {
		req.AccessLevel = "Default"
	}
	if req.Status == "" {
		req.Status = store.AssignmentStatusActive
	}
}

func (s *Server) handleAssignmentUpsert(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}
	req.fillDefaults()

	assignment, err := s.store.UpsertAssignment(r.Context(), &store.Assignment{
		UserID:      req.UserID,
		AppID:       req.AppID,
		RoleInApp:   req.RoleInApp,
		LicenseType: req.LicenseType,
		AccessLevel: req.AccessLevel,
		AssignedOn:  req.AssignedOn,
		Status:      req.Status,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("assignment upserted", "id", assignment.ID,
		"user", assignment.UserID, "app", assignment.AppID)
	s.writeJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleAssignmentUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetAssignment(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var req assignmentRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	// user_id and app_id are immutable on update
	req.UserID = existing.UserID
	req.AppID = existing.AppID
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}
	req.fillDefaults()

	assignment := &store.Assignment{
		ID:          id,
		UserID:      existing.UserID,
		AppID:       existing.AppID,
		RoleInApp:   req.RoleInApp,
		LicenseType: req.LicenseType,
		AccessLevel: req.AccessLevel,
		AssignedOn:  req.AssignedOn,
		Status:      req.Status,
		CreatedAt:   existing.CreatedAt,
	}
	if assignment.AssignedOn == "" {
		assignment.AssignedOn = existing.AssignedOn
	}
	if err := s.store.UpdateAssignment(r.Context(), assignment); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleAssignmentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteAssignment(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("assignment deleted", "id", id)
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
