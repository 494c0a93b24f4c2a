package handler

import (
	"context"
	"time"

	appcontract "github.com/finadmin/backend/internal/application/contract"
	appfinance "github.com/finadmin/backend/internal/application/finance"
	appfx "github.com/finadmin/backend/internal/application/fx"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Create(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, req appfinance.CreateLedgerEntryRequest) (*appfinance.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, kind, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.LedgerEntryResponse), args.Error(1)
}

func (m *mockLedger) GetByID(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID) (*appfinance.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.LedgerEntryResponse), args.Error(1)
}

func (m *mockLedger) List(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, filter appfinance.LedgerEntryListFilter) ([]appfinance.LedgerEntryResponse, int64, error) {
	args := m.Called(ctx, tenantID, kind, filter)
	return args.Get(0).([]appfinance.LedgerEntryResponse), args.Get(1).(int64), args.Error(2)
}

func (m *mockLedger) Update(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID, req appfinance.UpdateLedgerEntryRequest) (*appfinance.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, kind, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.LedgerEntryResponse), args.Error(1)
}

func (m *mockLedger) Cancel(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID, req appfinance.CancelLedgerEntryRequest) (*appfinance.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, kind, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.LedgerEntryResponse), args.Error(1)
}

func (m *mockLedger) Summary(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind) (*appfinance.LedgerSummaryResponse, error) {
	args := m.Called(ctx, tenantID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.LedgerSummaryResponse), args.Error(1)
}

func (m *mockLedger) ListOverdue(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, asOf time.Time) ([]appfinance.OverdueEntryResponse, error) {
	args := m.Called(ctx, tenantID, kind, asOf)
	return args.Get(0).([]appfinance.OverdueEntryResponse), args.Error(1)
}

type mockSettlements struct {
	mock.Mock
}

func (m *mockSettlements) RecordSettlement(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, entryID uuid.UUID, req appfinance.RecordSettlementRequest) (*appfinance.SettlementResponse, error) {
	args := m.Called(ctx, tenantID, kind, entryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.SettlementResponse), args.Error(1)
}

func (m *mockSettlements) ListSettlements(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, entryID uuid.UUID) ([]appfinance.SettlementResponse, error) {
	args := m.Called(ctx, tenantID, kind, entryID)
	return args.Get(0).([]appfinance.SettlementResponse), args.Error(1)
}

func (m *mockSettlements) ReverseSettlement(ctx context.Context, tenantID, settlementID uuid.UUID, req appfinance.ReverseSettlementRequest) (*appfinance.SettlementResponse, error) {
	args := m.Called(ctx, tenantID, settlementID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.SettlementResponse), args.Error(1)
}

func (m *mockSettlements) Reconcile(ctx context.Context, tenantID uuid.UUID) (*appfinance.ReconcileResult, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.ReconcileResult), args.Error(1)
}

type mockRates struct {
	mock.Mock
}

func (m *mockRates) GetRate(ctx context.Context, base, quote valueobject.Currency, asOf time.Time) (fx.Quote, error) {
	args := m.Called(ctx, base, quote, asOf)
	return args.Get(0).(fx.Quote), args.Error(1)
}

func (m *mockRates) GetExchangeRates(ctx context.Context, base valueobject.Currency) (*appfx.ExchangeRates, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfx.ExchangeRates), args.Error(1)
}

func (m *mockRates) Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (*appfx.Conversion, error) {
	args := m.Called(ctx, amount, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfx.Conversion), args.Error(1)
}

func (m *mockRates) Refresh(ctx context.Context, force bool) (*appfx.RefreshResult, error) {
	args := m.Called(ctx, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfx.RefreshResult), args.Error(1)
}

type mockContracts struct {
	mock.Mock
}

func (m *mockContracts) response(args mock.Arguments) (*appcontract.ContractResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcontract.ContractResponse), args.Error(1)
}

func (m *mockContracts) Create(ctx context.Context, tenantID uuid.UUID, req appcontract.CreateContractRequest) (*appcontract.ContractResponse, error) {
	return m.response(m.Called(ctx, tenantID, req))
}

func (m *mockContracts) Get(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error) {
	return m.response(m.Called(ctx, tenantID, contractID))
}

func (m *mockContracts) List(ctx context.Context, tenantID uuid.UUID, filter appcontract.ListFilter) ([]appcontract.ContractResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]appcontract.ContractResponse), args.Get(1).(int64), args.Error(2)
}

func (m *mockContracts) AddItem(ctx context.Context, tenantID, contractID uuid.UUID, req appcontract.AddItemRequest) (*appcontract.ContractResponse, error) {
	return m.response(m.Called(ctx, tenantID, contractID, req))
}

func (m *mockContracts) Suspend(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error) {
	return m.response(m.Called(ctx, tenantID, contractID))
}

func (m *mockContracts) Resume(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error) {
	return m.response(m.Called(ctx, tenantID, contractID))
}

func (m *mockContracts) Terminate(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error) {
	return m.response(m.Called(ctx, tenantID, contractID))
}

func (m *mockContracts) Advance(ctx context.Context, tenantID, contractID uuid.UUID, asOf time.Time) (*appcontract.AdvanceResult, error) {
	args := m.Called(ctx, tenantID, contractID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcontract.AdvanceResult), args.Error(1)
}
