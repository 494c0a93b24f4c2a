package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryKind(t *testing.T) {
	assert.True(t, EntryKindPayable.IsValid())
	assert.True(t, EntryKindReceivable.IsValid())
	assert.False(t, EntryKind("JOURNAL").IsValid())
	assert.Equal(t, "AP", EntryKindPayable.NumberPrefix())
	assert.Equal(t, "AR", EntryKindReceivable.NumberPrefix())
	assert.Equal(t, "receipt", EntryKindReceivable.SettlementName())
}

func TestNewLedgerEntry_StampsUSD(t *testing.T) {
	amount, _ := valueobject.NewMoney(decimal.RequireFromString("1250.50"), valueobject.BRL)
	rate := decimal.RequireFromString("0.2")
	now := time.Now()

	e, err := NewLedgerEntry(uuid.New(), EntryKindReceivable, "AR-1", uuid.New(), "Cliente SA", amount,
		FxStamp{Rate: rate, Source: "API", Provider: "exchangerate-api", Timestamp: now}, nil)
	require.NoError(t, err)

	assert.Equal(t, EntryStatusOpen, e.Status)
	assert.Equal(t, valueobject.BRL, e.OriginalCurrency)
	assert.True(t, e.UsdEquivAmount.Equal(amount.Amount().Mul(rate)))
	assert.Equal(t, "250.1", e.UsdEquivAmount.String())
	assert.Equal(t, "API", e.FxRateSource)
	assert.Equal(t, "exchangerate-api", e.FxRateProvider)
	assert.Equal(t, now, e.FxRateTimestamp)
	require.Len(t, e.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeLedgerEntryCreated, e.GetDomainEvents()[0].EventType())
}

func TestNewLedgerEntry_USDIdentity(t *testing.T) {
	amount, _ := valueobject.NewMoney(decimal.RequireFromString("99.99"), valueobject.USD)
	e, err := NewLedgerEntry(uuid.New(), EntryKindPayable, "AP-1", uuid.New(), "Acme", amount, usdStamp(), nil)
	require.NoError(t, err)
	assert.True(t, e.UsdEquivAmount.Equal(amount.Amount()))
	assert.True(t, e.FxRateUsed.Equal(decimal.NewFromInt(1)))
}

func TestNewLedgerEntry_Validation(t *testing.T) {
	tenant := uuid.New()
	cp := uuid.New()
	good, _ := valueobject.NewMoney(decimal.NewFromInt(10), valueobject.USD)
	negative, _ := valueobject.NewMoney(decimal.NewFromInt(-10), valueobject.USD)
	tooPrecise, _ := valueobject.NewMoneyFromString("100.12345", valueobject.USD)

	tests := []struct {
		name   string
		tenant uuid.UUID
		kind   EntryKind
		number string
		cp     uuid.UUID
		cpName string
		amount valueobject.Money
		stamp  FxStamp
		code   string
	}{
		{"missing tenant", uuid.Nil, EntryKindPayable, "AP-1", cp, "X", good, usdStamp(), "INVALID_TENANT"},
		{"bad kind", tenant, EntryKind("X"), "AP-1", cp, "X", good, usdStamp(), "INVALID_KIND"},
		{"empty number", tenant, EntryKindPayable, "", cp, "X", good, usdStamp(), "INVALID_ENTRY_NUMBER"},
		{"missing counterparty", tenant, EntryKindPayable, "AP-1", uuid.Nil, "X", good, usdStamp(), "INVALID_COUNTERPARTY"},
		{"missing name", tenant, EntryKindPayable, "AP-1", cp, "", good, usdStamp(), "INVALID_COUNTERPARTY_NAME"},
		{"negative amount", tenant, EntryKindPayable, "AP-1", cp, "X", negative, usdStamp(), "INVALID_AMOUNT"},
		{"five decimal places", tenant, EntryKindPayable, "AP-1", cp, "X", tooPrecise, usdStamp(), "INVALID_AMOUNT"},
		{"zero rate", tenant, EntryKindPayable, "AP-1", cp, "X", good, FxStamp{Rate: decimal.Zero, Source: "API"}, "INVALID_FX_RATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLedgerEntry(tt.tenant, tt.kind, tt.number, tt.cp, tt.cpName, tt.amount, tt.stamp, nil)
			require.Error(t, err)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestLedgerEntry_AmountScale(t *testing.T) {
	stamp := FxStamp{Rate: decimal.RequireFromString("1.1"), Source: "TABLE", Timestamp: time.Now()}
	fourPlaces, _ := valueobject.NewMoneyFromString("100.1234", valueobject.EUR)
	trailingZero, _ := valueobject.NewMoneyFromString("100.12340", valueobject.EUR)
	fivePlaces, _ := valueobject.NewMoneyFromString("100.12345", valueobject.EUR)

	e, err := NewLedgerEntry(uuid.New(), EntryKindReceivable, "AR-1", uuid.New(), "Acme", fourPlaces, stamp, nil)
	require.NoError(t, err)
	assert.Equal(t, "110.13574", e.UsdEquivAmount.String())
	assert.True(t, e.UsdEquivAmount.Equal(e.OriginalAmount.Round(valueobject.AmountScale).Mul(e.FxRateUsed)))

	require.NoError(t, e.ChangeAmount(trailingZero, stamp, false))

	var de *shared.DomainError
	err = e.ChangeAmount(fivePlaces, stamp, false)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVALID_AMOUNT", de.Code)
	assert.True(t, e.OriginalAmount.Equal(fourPlaces.Amount()), "amount untouched")

	_, err = NewSettlementRecord(e, fivePlaces, stamp, time.Now(), "wire")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVALID_AMOUNT", de.Code)

	rec, err := NewSettlementRecord(e, fourPlaces, stamp, time.Now(), "wire")
	require.NoError(t, err)
	assert.True(t, rec.UsdEquivAmount.Equal(e.UsdEquivAmount))
}

func TestLedgerEntry_ChangeAmount(t *testing.T) {
	e := newUSDPayable(t, 1000)
	eur, _ := valueobject.NewMoney(decimal.NewFromInt(500), valueobject.EUR)
	stamp := FxStamp{Rate: decimal.RequireFromString("1.1"), Source: "TABLE", Timestamp: time.Now()}

	assert.True(t, e.NeedsRestamp(eur))
	require.NoError(t, e.ChangeAmount(eur, stamp, false))
	assert.Equal(t, "550", e.UsdEquivAmount.String())
	assert.Equal(t, 2, e.Version)
	assert.False(t, e.NeedsRestamp(eur))

	err := e.ChangeAmount(eur, stamp, true)
	assert.ErrorIs(t, err, ErrHasSettlements)
}

func TestLedgerEntry_ChangeAmountAfterSettlementIsRejected(t *testing.T) {
	e := newUSDPayable(t, 1000)
	NewSettlementAggregator().Apply(e, []SettlementRecord{settle(t, e, 10)}, RecomputeMonotonic)

	other, _ := valueobject.NewMoney(decimal.NewFromInt(900), valueobject.USD)
	assert.ErrorIs(t, e.ChangeAmount(other, usdStamp(), false), ErrHasSettlements)
	assert.True(t, e.UsdEquivAmount.Equal(decimal.NewFromInt(1000)), "stamp untouched")
}

func TestLedgerEntry_Cancel(t *testing.T) {
	e := newUSDPayable(t, 100)
	assert.Error(t, e.Cancel("", false))
	assert.ErrorIs(t, e.Cancel("dup", true), ErrHasSettlements)

	require.NoError(t, e.Cancel("dup", false))
	assert.Equal(t, EntryStatusCancelled, e.Status)
	assert.NotNil(t, e.CancelledAt)
	assert.True(t, e.OutstandingUSD().IsZero())
	assert.Error(t, e.Cancel("again", false))

	assert.Error(t, e.UpdateDetails("x", nil, ""))
}

func TestLedgerEntry_Overdue(t *testing.T) {
	e := newUSDPayable(t, 100)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.False(t, e.IsOverdue(now))

	due := now.AddDate(0, 0, -3)
	require.NoError(t, e.UpdateDetails("", &due, "late"))
	assert.True(t, e.IsOverdue(now))
	assert.Equal(t, 3, e.DaysOverdue(now))

	NewSettlementAggregator().Apply(e, []SettlementRecord{settle(t, e, 100)}, RecomputeMonotonic)
	assert.False(t, e.IsOverdue(now), "paid entries are never overdue")
}
