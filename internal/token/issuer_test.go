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

package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/identity"
	"github.com/factora/factora/internal/panel"
	"github.com/factora/factora/internal/role"
	"github.com/factora/factora/internal/tenant"
)

type stubUserRepo struct {
	user *identity.User
}

func (s *stubUserRepo) Create(ctx context.Context, u *identity.User) error { return nil }

func (s *stubUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*identity.User, error) {
	if s.user != nil && (s.user.Username == identifier || s.user.DisplayName == identifier) {
		return s.user, nil
	}
	return nil, identity.ErrUserNotFound
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, identity.ErrUserNotFound
}

func (s *stubUserRepo) TouchActivity(ctx context.Context, userID string, at time.Time) error {
	return nil
}

type stubRoleRepo struct {
	role  *role.Role
	names []string
}

func (s *stubRoleRepo) Create(ctx context.Context, r *role.Role) error { return nil }
func (s *stubRoleRepo) GetByID(ctx context.Context, id string) (*role.Role, error) {
	if s.role != nil && s.role.ID == id {
		return s.role, nil
	}
	return nil, role.ErrRoleNotFound
}
func (s *stubRoleRepo) Update(ctx context.Context, r *role.Role) error { return nil }
func (s *stubRoleRepo) Delete(ctx context.Context, id string) error    { return nil }
func (s *stubRoleRepo) List(ctx context.Context) ([]*role.Role, error) { return nil, nil }
func (s *stubRoleRepo) ListPermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	return nil, nil
}
func (s *stubRoleRepo) ListPermissionNames(ctx context.Context, roleID string) ([]string, error) {
	return s.names, nil
}
func (s *stubRoleRepo) ReplacePermissions(ctx context.Context, roleID string, target []string) (bool, error) {
	return false, nil
}

type stubTenantRepo struct {
	tenant *tenant.Tenant
}

func (s *stubTenantRepo) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	if s.tenant != nil && s.tenant.ID == id {
		return s.tenant, nil
	}
	return nil, tenant.ErrTenantNotFound
}
func (s *stubTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error { return nil }

func newTestIssuer(t *testing.T, r *role.Role, permissions []string, ten *tenant.Tenant) (*Issuer, *Signer) {
	t.Helper()

	hasher := identity.NewPasswordHasher(65536, 3, 4, 16, 32)
	hash, err := hasher.Hash("SecurePassword123")
	require.NoError(t, err)

	userRepo := &stubUserRepo{user: &identity.User{
		ID:           "user-1",
		TenantID:     "tenant-1",
		RoleID:       r.ID,
		Username:     "mgarcia",
		DisplayName:  "Maria Garcia",
		PasswordHash: hash,
	}}

	auditLogger := audit.NewSlogLogger()
	identityService := identity.NewService(userRepo, hasher, auditLogger)
	signer := NewSigner(testSecret, "factora", time.Hour)
	issuer := NewIssuer(
		identityService,
		&stubRoleRepo{role: r, names: permissions},
		&stubTenantRepo{tenant: ten},
		signer,
		auditLogger,
	)
	return issuer, signer
}

func TestIssuer_Issue(t *testing.T) {
	r := &role.Role{ID: "role-1", Name: "Administrator", Category: panel.CategoryAdmin}
	ten := &tenant.Tenant{ID: "tenant-1", Name: "Acme SA"}
	issuer, signer := newTestIssuer(t, r, []string{"admin", "users.manage"}, ten)

	signed, view, err := issuer.Issue(context.Background(), "mgarcia", "SecurePassword123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", view.ID)
	assert.Equal(t, "mgarcia", view.Username)

	claims, err := signer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Administrator", claims.Role)
	assert.Equal(t, "admin", claims.Category())
	assert.Equal(t, []string{"admin", "users.manage"}, claims.Permissions)
	assert.Equal(t, "Acme SA", claims.TenantName)
}

func TestIssuer_Issue_BadCredentials(t *testing.T) {
	r := &role.Role{ID: "role-1", Name: "Administrator", Category: panel.CategoryAdmin}
	issuer, _ := newTestIssuer(t, r, nil, nil)

	_, _, err := issuer.Issue(context.Background(), "mgarcia", "WrongPassword999")
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))

	_, _, err = issuer.Issue(context.Background(), "nobody", "SecurePassword123")
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))
}

// Roles without an explicit category fall back to inference from the
// permission names, then to the general bucket.
func TestIssuer_CategoryFallback(t *testing.T) {
	tests := []struct {
		name        string
		category    panel.Category
		permissions []string
		want        string
	}{
		{"explicit category wins", panel.CategoryClient, []string{"admin"}, "client"},
		{"inferred from permissions", "", []string{"invoices.view", "client"}, "client"},
		{"general bucket", "", []string{"invoices.view"}, "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &role.Role{ID: "role-1", Name: "Legacy", Category: tt.category}
			issuer, signer := newTestIssuer(t, r, tt.permissions, nil)

			signed, _, err := issuer.Issue(context.Background(), "mgarcia", "SecurePassword123")
			require.NoError(t, err)

			claims, err := signer.Verify(signed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims.Category())
		})
	}
}

// Tenant lookup is best effort: a missing tenant never blocks login.
func TestIssuer_Issue_MissingTenant(t *testing.T) {
	r := &role.Role{ID: "role-1", Name: "Administrator", Category: panel.CategoryAdmin}
	issuer, signer := newTestIssuer(t, r, []string{"admin"}, nil)

	signed, _, err := issuer.Issue(context.Background(), "mgarcia", "SecurePassword123")
	require.NoError(t, err)

	claims, err := signer.Verify(signed)
	require.NoError(t, err)
	assert.Empty(t, claims.TenantName)
	assert.Equal(t, "tenant-1", claims.TenantID)
}
