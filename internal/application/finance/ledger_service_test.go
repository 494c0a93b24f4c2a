package finance

import (
	"context"
	"testing"
	"time"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerFixture(opts ...LedgerServiceOption) (*LedgerService, *memLedgerRepo, *memSettlementRepo, *fixedConverter) {
	entries := newMemLedgerRepo()
	settlements := &memSettlementRepo{}
	conv := newFixedConverter()
	svc := NewLedgerService(entries, settlements, NewNoOpTransactionScope(entries, settlements, nil), conv, opts...)
	return svc, entries, settlements, conv
}

func createReq(amount, currency string) CreateLedgerEntryRequest {
	return CreateLedgerEntryRequest{
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Globex",
		Amount:           decimal.RequireFromString(amount),
		Currency:         currency,
	}
}

func TestLedgerCreate_USDIdentity(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()

	resp, err := svc.Create(context.Background(), uuid.New(), finance.EntryKindReceivable, createReq("1234.56", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "RECEIVABLE", resp.Kind)
	assert.Equal(t, "AR-00001", resp.EntryNumber)
	assert.Equal(t, "OPEN", resp.Status)
	assert.True(t, resp.UsdEquivAmount.Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, resp.FxRateUsed.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, string(fx.SourceIdentity), resp.FxRateSource)
}

func TestLedgerCreate_StampsUSDEquivalent(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, _, _ := newLedgerFixture(WithLedgerPublisher(pub))

	resp, err := svc.Create(context.Background(), uuid.New(), finance.EntryKindPayable, createReq("250", "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "AP-00001", resp.EntryNumber)
	assert.True(t, resp.UsdEquivAmount.Equal(resp.OriginalAmount.Mul(resp.FxRateUsed)))
	assert.True(t, resp.UsdEquivAmount.Equal(decimal.RequireFromString("275")))
	assert.Equal(t, []string{finance.EventTypeLedgerEntryCreated}, pub.types())
}

func TestLedgerCreate_DuplicateNumber(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	tenantID := uuid.New()

	req := createReq("10", "USD")
	req.EntryNumber = "INV-7"
	_, err := svc.Create(context.Background(), tenantID, finance.EntryKindPayable, req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenantID, finance.EntryKindPayable, req)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// same number on the other side of the ledger is fine
	_, err = svc.Create(context.Background(), tenantID, finance.EntryKindReceivable, req)
	assert.NoError(t, err)
}

func TestLedgerCreate_InvalidInput(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()

	_, err := svc.Create(context.Background(), uuid.New(), finance.EntryKindPayable, createReq("10", "ZZZ"))
	assert.ErrorIs(t, err, shared.ErrInvalidCurrency)

	_, err = svc.Create(context.Background(), uuid.New(), finance.EntryKindPayable, createReq("-5", "USD"))
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), uuid.New(), finance.EntryKindPayable, createReq("10", "JPY"))
	assert.ErrorIs(t, err, fx.ErrRateUnavailable)
}

func TestLedgerUpdate_RestampsWithoutSettlements(t *testing.T) {
	svc, _, _, conv := newLedgerFixture()
	tenantID := uuid.New()
	created, err := svc.Create(context.Background(), tenantID, finance.EntryKindPayable, createReq("100", "USD"))
	require.NoError(t, err)

	amount := decimal.NewFromInt(200)
	currency := "EUR"
	remark := "renegotiated"
	updated, err := svc.Update(context.Background(), tenantID, finance.EntryKindPayable, created.ID, UpdateLedgerEntryRequest{
		Amount:   &amount,
		Currency: &currency,
		Remark:   &remark,
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", updated.OriginalCurrency)
	assert.True(t, updated.UsdEquivAmount.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, "renegotiated", updated.Remark)
	assert.Equal(t, created.Version+2, updated.Version)
	assert.Equal(t, 2, conv.calls)
}

func TestLedgerUpdate_SameAmountDoesNotRestamp(t *testing.T) {
	svc, _, _, conv := newLedgerFixture()
	tenantID := uuid.New()
	created, err := svc.Create(context.Background(), tenantID, finance.EntryKindPayable, createReq("100", "EUR"))
	require.NoError(t, err)

	amount := decimal.RequireFromString("100.00")
	updated, err := svc.Update(context.Background(), tenantID, finance.EntryKindPayable, created.ID, UpdateLedgerEntryRequest{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, created.Version, updated.Version)
	assert.Equal(t, 1, conv.calls)
}

func TestLedgerUpdate_RejectsAmountChangeAfterSettlement(t *testing.T) {
	svc, entries, settlements, _ := newLedgerFixture()
	tenantID := uuid.New()
	created, err := svc.Create(context.Background(), tenantID, finance.EntryKindPayable, createReq("100", "USD"))
	require.NoError(t, err)

	settle := NewSettlementService(entries, settlements, NewNoOpTransactionScope(entries, settlements, nil), newFixedConverter())
	_, err = settle.RecordSettlement(context.Background(), tenantID, finance.EntryKindPayable, created.ID, RecordSettlementRequest{Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	amount := decimal.NewFromInt(90)
	_, err = svc.Update(context.Background(), tenantID, finance.EntryKindPayable, created.ID, UpdateLedgerEntryRequest{Amount: &amount})
	assert.ErrorIs(t, err, finance.ErrHasSettlements)

	// details can still change
	name := "Globex Intl"
	updated, err := svc.Update(context.Background(), tenantID, finance.EntryKindPayable, created.ID, UpdateLedgerEntryRequest{CounterpartyName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Globex Intl", updated.CounterpartyName)
	assert.True(t, updated.UsdEquivAmount.Equal(decimal.NewFromInt(100)))
}

func TestLedgerCancel(t *testing.T) {
	svc, entries, settlements, _ := newLedgerFixture()
	tenantID := uuid.New()
	open, err := svc.Create(context.Background(), tenantID, finance.EntryKindReceivable, createReq("100", "USD"))
	require.NoError(t, err)
	settled, err := svc.Create(context.Background(), tenantID, finance.EntryKindReceivable, createReq("100", "USD"))
	require.NoError(t, err)

	settle := NewSettlementService(entries, settlements, NewNoOpTransactionScope(entries, settlements, nil), newFixedConverter())
	_, err = settle.RecordSettlement(context.Background(), tenantID, finance.EntryKindReceivable, settled.ID, RecordSettlementRequest{Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), tenantID, finance.EntryKindReceivable, settled.ID, CancelLedgerEntryRequest{Reason: "duplicate"})
	assert.ErrorIs(t, err, finance.ErrHasSettlements)

	resp, err := svc.Cancel(context.Background(), tenantID, finance.EntryKindReceivable, open.ID, CancelLedgerEntryRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "duplicate", resp.CancelReason)
	assert.True(t, resp.OutstandingUSD.IsZero())

	_, err = svc.Cancel(context.Background(), tenantID, finance.EntryKindReceivable, open.ID, CancelLedgerEntryRequest{Reason: "again"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestLedgerGetByID_TenantAndKindScoped(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	tenantID := uuid.New()
	created, err := svc.Create(context.Background(), tenantID, finance.EntryKindPayable, createReq("10", "USD"))
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), tenantID, finance.EntryKindPayable, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetByID(context.Background(), uuid.New(), finance.EntryKindPayable, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetByID(context.Background(), tenantID, finance.EntryKindReceivable, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedgerList(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	tenantID := uuid.New()
	for _, amt := range []string{"10", "20", "30"} {
		_, err := svc.Create(context.Background(), tenantID, finance.EntryKindPayable, createReq(amt, "USD"))
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), tenantID, finance.EntryKindReceivable, createReq("40", "USD"))
	require.NoError(t, err)

	list, total, err := svc.List(context.Background(), tenantID, finance.EntryKindPayable, LedgerEntryListFilter{Status: "OPEN"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 3)

	_, _, err = svc.List(context.Background(), tenantID, finance.EntryKindPayable, LedgerEntryListFilter{Status: "LOST"})
	assert.Error(t, err)
}

func TestLedgerListOverdueAndSummary(t *testing.T) {
	asOf := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newLedgerFixture(WithLedgerClock(func() time.Time { return asOf }))
	tenantID := uuid.New()

	late := createReq("100", "USD")
	due := asOf.AddDate(0, 0, -5)
	late.DueDate = &due
	_, err := svc.Create(context.Background(), tenantID, finance.EntryKindReceivable, late)
	require.NoError(t, err)

	onTime := createReq("50", "EUR")
	future := asOf.AddDate(0, 0, 5)
	onTime.DueDate = &future
	_, err = svc.Create(context.Background(), tenantID, finance.EntryKindReceivable, onTime)
	require.NoError(t, err)

	overdue, err := svc.ListOverdue(context.Background(), tenantID, finance.EntryKindReceivable, time.Time{})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, 5, overdue[0].DaysOverdue)

	sum, err := svc.Summary(context.Background(), tenantID, finance.EntryKindReceivable)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.OpenCount)
	assert.True(t, sum.OutstandingUSD.Equal(decimal.NewFromInt(155)))
}
