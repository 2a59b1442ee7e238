// Copyright 2026 The Factora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/factora/factora/internal/catalog"
	"github.com/factora/factora/internal/observability/logger"
	"github.com/factora/factora/internal/panel"
	"github.com/factora/factora/internal/role"
)

// RoleResponse is the API shape of a role
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoleResponse(r *role.Role) RoleResponse {
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		Category:    string(r.Category),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// PermissionResponse is the API shape of a catalog entry
type PermissionResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
}

func toPermissionResponses(perms []*catalog.Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, PermissionResponse{ID: p.ID, Name: p.Name, Section: p.Section})
	}
	return out
}

// ListPermissions returns the full permission catalog
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.catalogRepo.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list permissions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"permissions": toPermissionResponses(perms),
	})
}

// ListPermissionSections returns the catalog grouped for the
// role-editing surface.
func (h *Handler) ListPermissionSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.catalogRepo.ListBySection(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list permission sections", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	type sectionResponse struct {
		Name        string               `json:"name"`
		Permissions []PermissionResponse `json:"permissions"`
	}
	out := make([]sectionResponse, 0, len(sections))
	for _, s := range sections {
		out = append(out, sectionResponse{
			Name:        s.Name,
			Permissions: toPermissionResponses(s.Permissions),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"sections": out})
}

// ListRoles returns all roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list roles", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for _, ro := range roles {
		out = append(out, toRoleResponse(ro))
	}

	respondJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// CreateRoleRequest represents role creation data
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
	Category    string `json:"category" validate:"required"`
}

// CreateRole creates a new role bound to one panel category
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ro, err := h.roleService.Create(r.Context(), role.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
		Category:    req.Category,
	})
	if err != nil {
		h.respondRoleError(w, r, err, "failed to create role")
		return
	}

	respondJSON(w, http.StatusCreated, toRoleResponse(ro))
}

// GetRole returns one role
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	ro, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		h.respondRoleError(w, r, err, "failed to get role")
		return
	}

	respondJSON(w, http.StatusOK, toRoleResponse(ro))
}

// UpdateRoleRequest represents a partial role update
type UpdateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
	Category    *string `json:"category"`
}

// UpdateRole applies a partial update to a role
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ro, err := h.roleService.Update(r.Context(), chi.URLParam(r, "roleID"), role.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
		Category:    req.Category,
	})
	if err != nil {
		h.respondRoleError(w, r, err, "failed to update role")
		return
	}

	respondJSON(w, http.StatusOK, toRoleResponse(ro))
}

// DeleteRole removes a role and its permission assignments
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.roleService.Delete(r.Context(), chi.URLParam(r, "roleID")); err != nil {
		h.respondRoleError(w, r, err, "failed to delete role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "role deleted",
	})
}

// GetRolePermissions returns the catalog ids assigned to a role
func (h *Handler) GetRolePermissions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.roleService.PermissionIDs(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		h.respondRoleError(w, r, err, "failed to get role permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"permission_ids": ids})
}

// ReplacePermissionsRequest carries the complete target assignment
// set. There is no incremental add/remove surface.
type ReplacePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1"`
}

// ReplaceRolePermissions overwrites the role's assignment set
func (h *Handler) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req ReplacePermissionsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	roleID := chi.URLParam(r, "roleID")
	if err := h.roleService.ReplacePermissions(r.Context(), roleID, req.PermissionIDs); err != nil {
		h.respondRoleError(w, r, err, "failed to replace role permissions")
		return
	}

	ids, err := h.roleService.PermissionIDs(r.Context(), roleID)
	if err != nil {
		h.respondRoleError(w, r, err, "failed to read role permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"permission_ids": ids})
}

// respondRoleError maps role domain errors onto HTTP statuses
func (h *Handler) respondRoleError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, role.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, role.ErrEmptyName):
		respondError(w, http.StatusBadRequest, "role name is required")
	case errors.Is(err, role.ErrEmptyPermissionSet):
		respondError(w, http.StatusBadRequest, "permission set must not be empty")
	case errors.Is(err, role.ErrUnknownPermission):
		respondError(w, http.StatusBadRequest, "unknown permission id")
	case errors.Is(err, panel.ErrInvalidCategory):
		respondError(w, http.StatusBadRequest, "category must be admin or client")
	default:
		slog.ErrorContext(r.Context(), fallback, logger.Error(err))
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
