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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/factora/factora/internal/panel"
	"github.com/factora/factora/internal/role"
)

// RoleRepository implements role.Repository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a new role
func (r *RoleRepository) Create(ctx context.Context, ro *role.Role) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (
			id, name, description, active, panel_category, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ro.ID, ro.Name, ro.Description, ro.Active, string(ro.Category),
		ro.CreatedAt, ro.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	var ro role.Role
	var categoryStr string

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, active, panel_category, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id).Scan(
		&ro.ID, &ro.Name, &ro.Description, &ro.Active, &categoryStr,
		&ro.CreatedAt, &ro.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	ro.Category = panel.Category(categoryStr)
	return &ro, nil
}

// Update persists the mutable fields of an existing role
func (r *RoleRepository) Update(ctx context.Context, ro *role.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles SET
			name = $2,
			description = $3,
			active = $4,
			panel_category = $5,
			updated_at = $6
		WHERE id = $1
	`,
		ro.ID, ro.Name, ro.Description, ro.Active, string(ro.Category), ro.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}

	return nil
}

// Delete removes a role and its permission assignments in one
// transaction, assignments first so a concurrent reader never sees a
// dangling assignment.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1
	`, id); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}

	result, err := tx.Exec(ctx, `
		DELETE FROM roles WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}

	return tx.Commit(ctx)
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*role.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, description, active, panel_category, created_at, updated_at
		FROM roles
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	for rows.Next() {
		var ro role.Role
		var categoryStr string

		if err := rows.Scan(
			&ro.ID, &ro.Name, &ro.Description, &ro.Active, &categoryStr,
			&ro.CreatedAt, &ro.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}

		ro.Category = panel.Category(categoryStr)
		roles = append(roles, &ro)
	}

	return roles, nil
}

// ListPermissionIDs retrieves the assigned permission ids for a role.
// An unknown role id is a not-found error, never an empty list.
func (r *RoleRepository) ListPermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	var exists bool
	if err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)
	`, roleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check role existence: %w", err)
	}
	if !exists {
		return nil, role.ErrRoleNotFound
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT permission_id FROM role_permissions WHERE role_id = $1
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("failed to scan permission id: %w", err)
		}
		ids = append(ids, pid)
	}

	return ids, nil
}

// ListPermissionNames retrieves the assigned permission names for a
// role, flattened from the assignment join.
func (r *RoleRepository) ListPermissionNames(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT p.name
		FROM role_permissions rp
		INNER JOIN permissions p ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permission names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission name: %w", err)
		}
		names = append(names, name)
	}

	return names, nil
}

// ReplacePermissions overwrites the role's assignment set inside one
// transaction. The role row is locked first so two concurrent
// replacements serialize instead of interleaving their diffs; a reader
// never observes a partially applied set.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, target []string) (bool, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var dummy string
	err = tx.QueryRow(ctx, `
		SELECT id FROM roles WHERE id = $1 FOR UPDATE
	`, roleID).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, role.ErrRoleNotFound
		}
		return false, fmt.Errorf("failed to lock role: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT permission_id FROM role_permissions WHERE role_id = $1
	`, roleID)
	if err != nil {
		return false, fmt.Errorf("failed to read current assignments: %w", err)
	}

	current := make(map[string]struct{})
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan assignment: %w", err)
		}
		current[pid] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to read current assignments: %w", err)
	}

	// Symmetric difference against the current set.
	wanted := make(map[string]struct{}, len(target))
	var toInsert []string
	for _, pid := range target {
		wanted[pid] = struct{}{}
		if _, ok := current[pid]; !ok {
			toInsert = append(toInsert, pid)
		}
	}
	var toDelete []string
	for pid := range current {
		if _, ok := wanted[pid]; !ok {
			toDelete = append(toDelete, pid)
		}
	}

	for _, pid := range toDelete {
		if _, err := tx.Exec(ctx, `
			DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2
		`, roleID, pid); err != nil {
			return false, fmt.Errorf("failed to remove assignment: %w", err)
		}
	}
	for _, pid := range toInsert {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		`, roleID, pid); err != nil {
			return false, fmt.Errorf("failed to add assignment: %w", err)
		}
	}

	// The timestamp bump happens even on an empty diff: the operation
	// itself is the observable event.
	if _, err := tx.Exec(ctx, `
		UPDATE roles SET updated_at = $2 WHERE id = $1
	`, roleID, time.Now()); err != nil {
		return false, fmt.Errorf("failed to bump role timestamp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit replacement: %w", err)
	}

	return len(toInsert) > 0 || len(toDelete) > 0, nil
}
