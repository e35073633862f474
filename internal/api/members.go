// ABOUTME: HTTP handlers for member listing, role changes, and visibility override edits.
// ABOUTME: Every write is audited by the store; admins may not edit owners.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scarson/congregate/internal/access"
	"github.com/scarson/congregate/internal/store"
)

// ── Request / response types ──────────────────────────────────────────────────

type memberResponse struct {
	UserID       string                      `json:"user_id"`
	Email        string                      `json:"email"`
	DisplayName  string                      `json:"display_name"`
	Role         access.Role                 `json:"role"`
	Overrides    *access.VisibilityOverrides `json:"overrides"`
	HasOverrides bool                        `json:"has_overrides"`
	UpdatedAt    string                      `json:"updated_at"`
}

type memberVisibilityResponse struct {
	memberResponse
	Visibility access.Visibility `json:"visibility"`
}

type updateMemberRoleBody struct {
	Role string `json:"role"`
}

type visibilityChangeResponse struct {
	ID         string                      `json:"id"`
	ChangedBy  *string                     `json:"changed_by"`
	RoleBefore access.Role                 `json:"role_before"`
	RoleAfter  access.Role                 `json:"role_after"`
	Before     *access.VisibilityOverrides `json:"before"`
	After      *access.VisibilityOverrides `json:"after"`
	CreatedAt  string                      `json:"created_at"`
}

func toMemberResponse(m *store.Member) memberResponse {
	return memberResponse{
		UserID:       m.UserID.String(),
		Email:        m.Email,
		DisplayName:  m.DisplayName,
		Role:         m.Role,
		Overrides:    m.Overrides,
		HasOverrides: m.Resolver().HasAnyOverrides(),
		UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
	}
}

func toVisibilityChangeResponse(c store.VisibilityChange) visibilityChangeResponse {
	resp := visibilityChangeResponse{
		ID:         c.ID.String(),
		RoleBefore: c.RoleBefore,
		RoleAfter:  c.RoleAfter,
		Before:     c.Before,
		After:      c.After,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
	if c.ChangedBy != nil {
		s := c.ChangedBy.String()
		resp.ChangedBy = &s
	}
	return resp
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// loadTarget parses {user_id} and loads that member of the caller's org.
// On failure it writes the response and returns nil.
func (srv *Server) loadTarget(w http.ResponseWriter, r *http.Request) *store.Member {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return nil
	}
	m, err := srv.store.GetMember(r.Context(), orgID, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if m == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	return m
}

// canEdit reports whether editor may change target's role or overrides.
// Only owners may edit owners, and nobody edits their own record.
func canEdit(editor, target *store.Member) bool {
	if editor == nil || !editor.Role.CanManageVisibility() {
		return false
	}
	if editor.UserID == target.UserID {
		return false
	}
	if target.Role == access.RoleOwner && editor.Role != access.RoleOwner {
		return false
	}
	return true
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// listMembersHandler handles GET /api/v1/orgs/{org_id}/members.
// Repeated ?role= parameters restrict the list to those roles.
func (srv *Server) listMembersHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var roles []access.Role
	for _, q := range r.URL.Query()["role"] {
		role, ok := access.ParseRole(q)
		if !ok {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		roles = append(roles, role)
	}

	members, err := srv.store.ListOrgMembers(r.Context(), orgID, roles...)
	if err != nil {
		slog.ErrorContext(r.Context(), "list members", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, toMemberResponse(&members[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type rosterEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// attendanceRosterHandler handles GET /api/v1/orgs/{org_id}/attendance/roster.
// It lists every member by name only; roles, emails, and overrides stay
// behind user_management.
func (srv *Server) attendanceRosterHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	members, err := srv.store.ListOrgMembers(r.Context(), orgID)
	if err != nil {
		slog.ErrorContext(r.Context(), "attendance roster", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]rosterEntry, 0, len(members))
	for _, m := range members {
		resp = append(resp, rosterEntry{UserID: m.UserID.String(), DisplayName: m.DisplayName})
	}
	writeJSON(w, http.StatusOK, resp)
}

// updateMemberRoleHandler handles PATCH /api/v1/orgs/{org_id}/members/{user_id}.
// Overrides are kept across role changes.
func (srv *Server) updateMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	editor := memberFrom(r.Context())
	target := srv.loadTarget(w, r)
	if target == nil {
		return
	}

	var req updateMemberRoleBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	role, ok := access.ParseRole(req.Role)
	if !ok {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}

	if target.UserID == editor.UserID {
		http.Error(w, "cannot change your own role", http.StatusForbidden)
		return
	}
	if !canEdit(editor, target) || (role == access.RoleOwner && editor.Role != access.RoleOwner) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	m, err := srv.store.UpdateMemberRole(r.Context(), target.OrgID, target.UserID, editor.UserID, role)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRole) {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "update member role", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	slog.InfoContext(r.Context(), "member role changed",
		"org_id", m.OrgID, "user_id", m.UserID, "changed_by", editor.UserID,
		"role_before", target.Role, "role_after", m.Role)
	writeJSON(w, http.StatusOK, toMemberResponse(m))
}

// getMemberVisibilityHandler handles GET /api/v1/orgs/{org_id}/members/{user_id}/visibility.
func (srv *Server) getMemberVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	target := srv.loadTarget(w, r)
	if target == nil {
		return
	}
	writeJSON(w, http.StatusOK, memberVisibilityResponse{
		memberResponse: toMemberResponse(target),
		Visibility:     target.Resolver().Snapshot(),
	})
}

// putMemberVisibilityHandler handles PUT /api/v1/orgs/{org_id}/members/{user_id}/visibility.
// The body replaces the member's whole override record; unknown keys are rejected.
func (srv *Server) putMemberVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	editor := memberFrom(r.Context())
	target := srv.loadTarget(w, r)
	if target == nil {
		return
	}
	if !canEdit(editor, target) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	o, err := access.DecodeOverridesStrict(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	srv.writeOverrides(w, r, editor, target, o)
}

// deleteMemberVisibilityHandler handles DELETE /api/v1/orgs/{org_id}/members/{user_id}/visibility.
// Clears every override so the member falls back to role defaults.
func (srv *Server) deleteMemberVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	editor := memberFrom(r.Context())
	target := srv.loadTarget(w, r)
	if target == nil {
		return
	}
	if !canEdit(editor, target) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	srv.writeOverrides(w, r, editor, target, nil)
}

func (srv *Server) writeOverrides(w http.ResponseWriter, r *http.Request, editor, target *store.Member, o *access.VisibilityOverrides) {
	m, err := srv.store.SetMemberOverrides(r.Context(), target.OrgID, target.UserID, editor.UserID, o)
	if err != nil {
		if errors.Is(err, access.ErrInvalidOverrides) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "set member overrides", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	slog.InfoContext(r.Context(), "member visibility changed",
		"org_id", m.OrgID, "user_id", m.UserID, "changed_by", editor.UserID,
		"has_overrides", m.Resolver().HasAnyOverrides())
	writeJSON(w, http.StatusOK, memberVisibilityResponse{
		memberResponse: toMemberResponse(m),
		Visibility:     m.Resolver().Snapshot(),
	})
}

// listVisibilityHistoryHandler handles GET /api/v1/orgs/{org_id}/members/{user_id}/visibility/history.
// Optional ?limit= caps the number of entries (newest first).
func (srv *Server) listVisibilityHistoryHandler(w http.ResponseWriter, r *http.Request) {
	target := srv.loadTarget(w, r)
	if target == nil {
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	changes, err := srv.store.ListVisibilityChanges(r.Context(), target.OrgID, target.UserID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "list visibility changes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]visibilityChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, toVisibilityChangeResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}
