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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
)

// User represents an account in the billing platform. Username and
// DisplayName are both distinguishing: login accepts either.
type User struct {
	ID             string
	TenantID       string
	RoleID         string
	Username       string
	DisplayName    string
	PasswordHash   string
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// View is the redacted representation returned to callers after
// authentication. It never carries the password hash.
type View struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	RoleID      string `json:"role_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Redacted returns the caller-safe view of the user.
func (u *User) Redacted() View {
	return View{
		ID:          u.ID,
		TenantID:    u.TenantID,
		RoleID:      u.RoleID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}

// Repository defines the interface for user persistence.
type Repository interface {
	// Create inserts a new user. Implementations surface
	// ErrUserAlreadyExists on a username or display-name collision.
	Create(ctx context.Context, user *User) error

	// GetByIdentifier retrieves a user whose username or display name
	// equals identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id string) (*User, error)

	// TouchActivity stamps the user's last-activity timestamp.
	TouchActivity(ctx context.Context, userID string, at time.Time) error
}
