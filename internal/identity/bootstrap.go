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
	"fmt"
	"os"
	"time"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/catalog"
	"github.com/factora/factora/internal/tenant"
)

const (
	EnvBootstrapAdminUsername    = "FACTORA_BOOTSTRAP_ADMIN_USERNAME"
	EnvBootstrapAdminPassword    = "FACTORA_BOOTSTRAP_ADMIN_PASSWORD"
	EnvBootstrapAdminDisplayName = "FACTORA_BOOTSTRAP_ADMIN_DISPLAY_NAME"
)

// BootstrapService provisions the first administrator account from the
// environment so a fresh deployment is reachable without SQL access.
type BootstrapService struct {
	identityService *Service
	tenantRepo      tenant.Repository
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(
	identityService *Service,
	tenantRepo tenant.Repository,
	auditLogger audit.Logger,
) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		tenantRepo:      tenantRepo,
		auditLogger:     auditLogger,
	}
}

// Bootstrap creates the initial administrator when the environment
// asks for one. Silently a no-op when the variables are unset or the
// account already exists, so it is safe to run on every start.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	username := os.Getenv(EnvBootstrapAdminUsername)
	password := os.Getenv(EnvBootstrapAdminPassword)
	displayName := os.Getenv(EnvBootstrapAdminDisplayName)

	if username == "" {
		return nil
	}
	if password == "" {
		return fmt.Errorf("%s is set but %s is empty", EnvBootstrapAdminUsername, EnvBootstrapAdminPassword)
	}
	if displayName == "" {
		displayName = username
	}

	if _, err := s.identityService.repo.GetByIdentifier(ctx, username); err == nil {
		// Already bootstrapped.
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check for existing administrator: %w", err)
	}

	// The platform tenant hosts cross-tenant staff accounts.
	if _, err := s.tenantRepo.GetByID(ctx, catalog.SystemTenantID); err != nil {
		if !errors.Is(err, tenant.ErrTenantNotFound) {
			return fmt.Errorf("failed to check system tenant: %w", err)
		}
		if err := s.tenantRepo.Create(ctx, &tenant.Tenant{
			ID:        catalog.SystemTenantID,
			Name:      "Factora",
			CreatedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to create system tenant: %w", err)
		}
	}

	user, err := s.identityService.Register(
		ctx, catalog.SystemTenantID, catalog.RoleIDAdministrator,
		username, displayName, password,
	)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap administrator: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		TenantID: catalog.SystemTenantID,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{"username": username, "bootstrap": true},
	})

	return nil
}
