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
	"fmt"

	"github.com/factora/factora/internal/catalog"
)

// PermissionRepository implements catalog.Repository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// List retrieves the full catalog ordered by section, then name
func (r *PermissionRepository) List(ctx context.Context) ([]*catalog.Permission, error) {
	return r.query(ctx, `
		SELECT id, name, section, created_at
		FROM permissions
		ORDER BY section, name
	`)
}

// ListBySection retrieves the catalog grouped by section label
func (r *PermissionRepository) ListBySection(ctx context.Context) ([]*catalog.Section, error) {
	perms, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	// List is section-ordered, so grouping is a single pass.
	var sections []*catalog.Section
	var current *catalog.Section
	for _, p := range perms {
		if current == nil || current.Name != p.Section {
			current = &catalog.Section{Name: p.Section}
			sections = append(sections, current)
		}
		current.Permissions = append(current.Permissions, p)
	}

	return sections, nil
}

// GetByIDs retrieves the permissions for a set of ids
func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []string) ([]*catalog.Permission, error) {
	if len(ids) == 0 {
		return []*catalog.Permission{}, nil
	}

	return r.query(ctx, `
		SELECT id, name, section, created_at
		FROM permissions
		WHERE id = ANY($1)
		ORDER BY section, name
	`, ids)
}

// GetByNames retrieves the permissions matching the given names
func (r *PermissionRepository) GetByNames(ctx context.Context, names []string) ([]*catalog.Permission, error) {
	if len(names) == 0 {
		return []*catalog.Permission{}, nil
	}

	return r.query(ctx, `
		SELECT id, name, section, created_at
		FROM permissions
		WHERE name = ANY($1)
		ORDER BY section, name
	`, names)
}

func (r *PermissionRepository) query(ctx context.Context, sql string, args ...any) ([]*catalog.Permission, error) {
	rows, err := r.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	perms := []*catalog.Permission{}
	for rows.Next() {
		var p catalog.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Section, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, &p)
	}

	return perms, nil
}
