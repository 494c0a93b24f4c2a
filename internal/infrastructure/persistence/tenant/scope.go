// Package tenant provides tenant scoping for GORM queries.
//
// Every ledger and contract query goes through Scope so a missing tenant id
// fails the statement instead of silently reading across tenants.
//
// Usage:
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&entries)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a tenant scoped query has no tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Column is the tenant column shared by all tenant scoped tables
const Column = "tenant_id"

// Scope filters by tenant_id. A nil tenant id aborts the statement.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(Column+" = ?", tenantID)
	}
}
