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
	"fmt"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/identity"
	"github.com/factora/factora/internal/panel"
	"github.com/factora/factora/internal/role"
	"github.com/factora/factora/internal/tenant"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer authenticates a user and bakes role, panel category, and the
// permission snapshot into a signed credential.
type Issuer struct {
	identityService *identity.Service
	roleRepo        role.Repository
	tenantRepo      tenant.Repository
	signer          *Signer
	auditLogger     audit.Logger
}

// NewIssuer creates a new credential issuer
func NewIssuer(
	identityService *identity.Service,
	roleRepo role.Repository,
	tenantRepo tenant.Repository,
	signer *Signer,
	auditLogger audit.Logger,
) *Issuer {
	return &Issuer{
		identityService: identityService,
		roleRepo:        roleRepo,
		tenantRepo:      tenantRepo,
		signer:          signer,
		auditLogger:     auditLogger,
	}
}

// Issue authenticates identifier/secret and returns the signed
// credential plus the redacted user view. The permission set is a
// snapshot: role edits apply on the next login, not retroactively.
func (i *Issuer) Issue(ctx context.Context, identifier, secret string) (string, identity.View, error) {
	user, err := i.identityService.Authenticate(ctx, identifier, secret)
	if err != nil {
		return "", identity.View{}, err
	}

	r, err := i.roleRepo.GetByID(ctx, user.RoleID)
	if err != nil {
		return "", identity.View{}, fmt.Errorf("failed to load role: %w", err)
	}

	permissions, err := i.roleRepo.ListPermissionNames(ctx, r.ID)
	if err != nil {
		return "", identity.View{}, fmt.Errorf("failed to load role permissions: %w", err)
	}

	category := resolveCategory(r, permissions)

	tenantName := ""
	if t, err := i.tenantRepo.GetByID(ctx, user.TenantID); err == nil {
		tenantName = t.Name
	}

	claims := Claims{
		DisplayName: user.DisplayName,
		Role:        r.Name,
		RoleCat:     string(category),
		Permissions: permissions,
		TenantID:    user.TenantID,
		TenantName:  tenantName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", identity.View{}, fmt.Errorf("failed to sign credential: %w", err)
	}

	i.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeCredentialIssued,
		TenantID: user.TenantID,
		ActorID:  user.ID,
		Resource: "credential",
		Metadata: map[string]any{
			"role":     r.Name,
			"category": string(category),
			"ttl":      i.signer.TTL().String(),
		},
	})

	return signed, user.Redacted(), nil
}

// resolveCategory prefers the role's explicit category. Roles that
// predate the category column fall back to inference from their
// permission names, and finally to the general bucket.
func resolveCategory(r *role.Role, permissions []string) panel.Category {
	if panel.Valid(r.Category) {
		return r.Category
	}
	for _, name := range permissions {
		if c, ok := panel.DetectFromPermission(name); ok {
			return c
		}
	}
	return panel.CategoryGeneral
}
