package tenant

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound = errors.New("tenant not found")
)

// Tenant is the business a user belongs to. Its id and display name
// are carried in issued credentials.
type Tenant struct {
	ID        string
	Name      string
	TaxID     string
	CreatedAt time.Time
}

// Repository defines the interface for tenant persistence.
type Repository interface {
	// GetByID retrieves a tenant by id.
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// Create inserts a new tenant.
	Create(ctx context.Context, t *Tenant) error
}
