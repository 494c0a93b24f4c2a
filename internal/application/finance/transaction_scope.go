package finance

import (
	"context"

	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/finadmin/backend/internal/domain/finance"
)

// TransactionScope runs a unit of work against repositories that share one
// database transaction. A returned error rolls everything back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the current transaction.
//
// A settlement insert and the status recompute it triggers always go through
// the same TransactionalRepositories, so a crash cannot leave a record without
// its entry's status update. The entry is read with FindByIDForUpdate first, so
// two settlements of the same entry recompute one after the other.
type TransactionalRepositories interface {
	LedgerEntries() finance.LedgerEntryRepository
	Settlements() finance.SettlementRecordRepository
	Contracts() contract.Repository
}

// NoOpTransactionScope calls fn directly with plain repositories. Used by tests.
type NoOpTransactionScope struct {
	entries     finance.LedgerEntryRepository
	settlements finance.SettlementRecordRepository
	contracts   contract.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	entries finance.LedgerEntryRepository,
	settlements finance.SettlementRecordRepository,
	contracts contract.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		entries:     entries,
		settlements: settlements,
		contracts:   contracts,
	}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) LedgerEntries() finance.LedgerEntryRepository {
	return s.entries
}

func (s *NoOpTransactionScope) Settlements() finance.SettlementRecordRepository {
	return s.settlements
}

func (s *NoOpTransactionScope) Contracts() contract.Repository {
	return s.contracts
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
