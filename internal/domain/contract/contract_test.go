package contract

import (
	"testing"
	"time"

	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContract(t *testing.T, end *time.Time) *Contract {
	t.Helper()
	c, err := NewContract(uuid.New(), "CT-2026-001", uuid.New(), "Globex", valueobject.EUR, date(2026, 1, 31), end)
	require.NoError(t, err)
	return c
}

func TestNewContract_Validation(t *testing.T) {
	start := date(2026, 1, 1)
	before := date(2025, 12, 1)

	_, err := NewContract(uuid.Nil, "CT-1", uuid.New(), "X", valueobject.USD, start, nil)
	assert.Error(t, err)
	_, err = NewContract(uuid.New(), "", uuid.New(), "X", valueobject.USD, start, nil)
	assert.Error(t, err)
	_, err = NewContract(uuid.New(), "CT-1", uuid.New(), "X", "", start, nil)
	assert.Error(t, err)
	_, err = NewContract(uuid.New(), "CT-1", uuid.New(), "X", valueobject.USD, start, &before)
	assert.Error(t, err)

	c, err := NewContract(uuid.New(), "CT-1", uuid.New(), "X", valueobject.USD, start, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, c.Status)
	assert.Len(t, c.GetDomainEvents(), 1)
}

func TestContract_AddItem(t *testing.T) {
	c := newTestContract(t, nil)

	item, err := c.AddItem("Hosting", decimal.NewFromInt(250), FrequencyMonthly, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 31, item.BillingDay)
	assert.Equal(t, date(2026, 1, 31), item.NextBillingDate)
	assert.Equal(t, c.ID, item.ContractID)

	_, err = c.AddItem("Bad", decimal.NewFromInt(1), Frequency("WEEKLY"), time.Time{})
	assert.Error(t, err)
	_, err = c.AddItem("", decimal.NewFromInt(1), FrequencyMonthly, time.Time{})
	assert.Error(t, err)
	_, err = c.AddItem("Free", decimal.Zero, FrequencyMonthly, time.Time{})
	assert.Error(t, err)
	_, err = c.AddItem("Fractional", decimal.RequireFromString("9.99995"), FrequencyMonthly, time.Time{})
	assert.Error(t, err)
	_, err = c.AddItem("Metered", decimal.RequireFromString("9.9999"), FrequencyMonthly, time.Time{})
	assert.NoError(t, err)
}

func TestContract_AdvanceItemKeepsBillingDay(t *testing.T) {
	c := newTestContract(t, nil)
	item, err := c.AddItem("Support", decimal.NewFromInt(100), FrequencyMonthly, time.Time{})
	require.NoError(t, err)
	id := item.ID

	due := c.DueItems(date(2026, 1, 31))
	require.Len(t, due, 1)

	billed, err := c.AdvanceItem(id, date(2026, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, date(2026, 1, 31), billed)
	assert.Equal(t, date(2026, 2, 28), c.Items[0].NextBillingDate)

	_, err = c.AdvanceItem(id, date(2026, 2, 28))
	require.NoError(t, err)
	assert.Equal(t, date(2026, 3, 31), c.Items[0].NextBillingDate)

	assert.Empty(t, c.DueItems(date(2026, 3, 30)))
	assert.Len(t, c.DueItems(date(2026, 3, 31)), 1)
}

func TestContract_AdvancePastEndDeactivates(t *testing.T) {
	end := date(2026, 6, 30)
	c := newTestContract(t, &end)
	item, err := c.AddItem("License", decimal.NewFromInt(1200), FrequencySemiannual, date(2026, 1, 31))
	require.NoError(t, err)

	_, err = c.AdvanceItem(item.ID, date(2026, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, date(2026, 7, 31), c.Items[0].NextBillingDate)
	assert.False(t, c.Items[0].Active)

	_, err = c.AdvanceItem(item.ID, date(2026, 7, 31))
	assert.Error(t, err)
}

func TestContract_Lifecycle(t *testing.T) {
	c := newTestContract(t, nil)
	_, err := c.AddItem("Hosting", decimal.NewFromInt(10), FrequencyQuarterly, time.Time{})
	require.NoError(t, err)

	require.NoError(t, c.Suspend())
	assert.Empty(t, c.DueItems(date(2030, 1, 1)))
	_, err = c.AdvanceItem(c.Items[0].ID, time.Now())
	assert.Error(t, err)

	require.NoError(t, c.Resume())
	require.NoError(t, c.Terminate())
	assert.False(t, c.Items[0].Active)
	assert.Error(t, c.Terminate())

	_, err = c.AdvanceItem(uuid.New(), time.Now())
	assert.Error(t, err)
}
