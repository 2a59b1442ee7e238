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
	"errors"
	"time"

	"github.com/factora/factora/internal/panel"
)

// Domain errors
var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrEmptyName          = errors.New("role name is required")
	ErrEmptyPermissionSet = errors.New("permission set must not be empty")
	ErrUnknownPermission  = errors.New("unknown permission id")
)

// Role binds a name to exactly one panel category. A role cannot grant
// administrative and client capabilities at the same time; the category
// column carries a database-level check mirroring this invariant.
type Role struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Category    panel.Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines the interface for role persistence. Multi-step
// mutations (Delete, ReplacePermissions) are implemented as single
// database transactions by the concrete store.
type Repository interface {
	// Create inserts a new role.
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role by id.
	GetByID(ctx context.Context, id string) (*Role, error)

	// Update persists the mutable fields of an existing role.
	Update(ctx context.Context, role *Role) error

	// Delete removes a role and all of its permission assignments in
	// one transaction, assignments first.
	Delete(ctx context.Context, id string) error

	// List retrieves all roles ordered by name.
	List(ctx context.Context) ([]*Role, error)

	// ListPermissionIDs retrieves the assigned permission ids for a
	// role. Returns ErrRoleNotFound when the role does not exist, never
	// an empty list standing in for it.
	ListPermissionIDs(ctx context.Context, roleID string) ([]string, error)

	// ListPermissionNames retrieves the assigned permission names for a
	// role, flattened from the assignment join.
	ListPermissionNames(ctx context.Context, roleID string) ([]string, error)

	// ReplacePermissions overwrites the role's assignment set with
	// target inside one transaction: it locks the role row, diffs
	// against the current set, deletes the rows no longer present,
	// inserts the new ones, and bumps the role's updated_at. Either the
	// full replacement lands or none of it does. The returned flag
	// reports whether any assignment row changed (false on an
	// idempotent repeat; the timestamp is bumped either way).
	ReplacePermissions(ctx context.Context, roleID string, target []string) (bool, error)
}
