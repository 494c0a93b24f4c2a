package persistence

import (
	"context"

	appfinance "github.com/finadmin/backend/internal/application/finance"
	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/finadmin/backend/internal/domain/finance"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// If fn returns an error the transaction is rolled back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// LedgerEntries returns the ledger entry repository bound to the transaction
func (r *gormTransactionalRepositories) LedgerEntries() finance.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// Settlements returns the settlement repository bound to the transaction
func (r *gormTransactionalRepositories) Settlements() finance.SettlementRecordRepository {
	return NewGormSettlementRecordRepository(r.tx)
}

// Contracts returns the contract repository bound to the transaction
func (r *gormTransactionalRepositories) Contracts() contract.Repository {
	return NewGormContractRepository(r.tx)
}

var (
	_ appfinance.TransactionScope          = (*GormTransactionScope)(nil)
	_ appfinance.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
