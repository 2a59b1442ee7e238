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

package role

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/catalog"
	"github.com/factora/factora/internal/id"
	"github.com/factora/factora/internal/panel"
)

// Service provides the role and role-permission business logic.
type Service struct {
	repo        Repository
	catalogRepo catalog.Repository
	auditLogger audit.Logger
}

// NewService creates a new role service
func NewService(repo Repository, catalogRepo catalog.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		catalogRepo: catalogRepo,
		auditLogger: auditLogger,
	}
}

// CreateInput holds the fields for creating a role.
type CreateInput struct {
	Name        string
	Description string
	Active      *bool // defaults to true when nil
	Category    string
}

// UpdateInput holds a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Active      *bool
	Category    *string
}

// Create validates and persists a new role bound to one panel category.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	category, err := panel.Normalize(in.Category)
	if err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	now := time.Now()
	r := &Role{
		ID:          id.NewUUIDv7(),
		Name:        name,
		Description: in.Description,
		Active:      active,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		Resource: r.ID,
		Metadata: map[string]any{"name": r.Name, "category": string(r.Category)},
	})

	return r, nil
}

// Update applies the supplied fields to an existing role. A category
// change re-validates through the resolver.
func (s *Service) Update(ctx context.Context, roleID string, in UpdateInput) (*Role, error) {
	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		r.Name = name
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.Active != nil {
		r.Active = *in.Active
	}
	if in.Category != nil {
		category, err := panel.Normalize(*in.Category)
		if err != nil {
			return nil, err
		}
		r.Category = category
	}
	r.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleUpdated,
		Resource: r.ID,
		Metadata: map[string]any{"name": r.Name, "category": string(r.Category)},
	})

	return r, nil
}

// Delete removes a role together with its permission assignments. The
// store removes the assignments first, then the role, in one
// transaction. Deleting a role with zero assignments is not an error.
func (s *Service) Delete(ctx context.Context, roleID string) error {
	if err := s.repo.Delete(ctx, roleID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		Resource: roleID,
	})

	return nil
}

// ReplacePermissions overwrites a role's assignment set with the
// de-duplicated target ids. The target must be non-empty and every id
// must exist in the catalog; the replacement itself is atomic and
// idempotent (a repeat with the same target changes no rows but still
// bumps the role's timestamp).
func (s *Service) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	target := dedupe(permissionIDs)
	if len(target) == 0 {
		return ErrEmptyPermissionSet
	}

	// Validate against the full catalog, not the role's current set.
	found, err := s.catalogRepo.GetByIDs(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to read permission catalog: %w", err)
	}
	if len(found) != len(target) {
		known := make(map[string]struct{}, len(found))
		for _, p := range found {
			known[p.ID] = struct{}{}
		}
		for _, pid := range target {
			if _, ok := known[pid]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownPermission, pid)
			}
		}
	}

	changed, err := s.repo.ReplacePermissions(ctx, roleID, target)
	if err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRolePermissionsReplaced,
		Resource: roleID,
		Metadata: map[string]any{"count": len(target), "changed": changed},
	})

	return nil
}

// List retrieves all roles.
func (s *Service) List(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}

// Get retrieves a role by id.
func (s *Service) Get(ctx context.Context, roleID string) (*Role, error) {
	return s.repo.GetByID(ctx, roleID)
}

// PermissionIDs retrieves the role's assigned permission ids.
func (s *Service) PermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	return s.repo.ListPermissionIDs(ctx, roleID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
