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
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/factora/factora/internal/identity"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (
			id, tenant_id, role_id, username, display_name, password_hash,
			last_activity_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID, user.TenantID, user.RoleID, user.Username, user.DisplayName,
		user.PasswordHash, user.LastActivityAt, user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByIdentifier retrieves a user whose username or display name
// equals identifier. Both columns are unique so at most one row matches.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*identity.User, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, role_id, username, display_name, password_hash,
		       last_activity_at, created_at, updated_at
		FROM users
		WHERE username = $1 OR display_name = $1
	`, identifier))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, role_id, username, display_name, password_hash,
		       last_activity_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id))
}

// TouchActivity stamps the user's last-activity timestamp
func (r *UserRepository) TouchActivity(ctx context.Context, userID string, at time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET last_activity_at = $2, updated_at = $2 WHERE id = $1
	`, userID, at)

	if err != nil {
		return fmt.Errorf("failed to touch user activity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) scanOne(row pgx.Row) (*identity.User, error) {
	var user identity.User

	err := row.Scan(
		&user.ID, &user.TenantID, &user.RoleID, &user.Username, &user.DisplayName,
		&user.PasswordHash, &user.LastActivityAt, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
