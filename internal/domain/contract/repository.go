package contract

import (
	"context"
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter defines list criteria for contracts
type Filter struct {
	shared.Filter
	Status     *Status
	CustomerID *uuid.UUID
}

// Repository persists contracts together with their items
type Repository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Contract, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]Contract, int64, error)
	// FindDue returns ACTIVE contracts having at least one item due on or before asOf
	FindDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]Contract, error)
	Save(ctx context.Context, c *Contract) error
	SaveWithLock(ctx context.Context, c *Contract) error
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}
