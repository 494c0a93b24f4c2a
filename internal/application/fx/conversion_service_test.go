package fx

import (
	"context"
	"testing"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fallbackOnlyProvider resolves every pair from the static table
func fallbackOnlyProvider() *RateProvider {
	repo := new(MockRateRepository)
	feed := new(MockRateFeed)
	repo.On("FindForDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	repo.On("FindAllForDay", mock.Anything, mock.Anything, mock.Anything).Return([]fx.Rate{}, nil)
	feed.On("FetchLatest", mock.Anything, mock.Anything).Return(nil, errDown)
	return newTestProvider(repo, feed, newMapCache())
}

func TestConvertToUSD_USDShortCircuits(t *testing.T) {
	repo := new(MockRateRepository)
	svc := NewConversionService(newTestProvider(repo, new(MockRateFeed), newMapCache()), 0)

	amount := decimal.RequireFromString("1234.56")
	c, err := svc.ConvertToUSD(context.Background(), amount, valueobject.USD)
	require.NoError(t, err)
	assert.True(t, c.USDAmount().Equal(amount))
	assert.True(t, c.FXRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, fx.SourceIdentity, c.Source)
	assert.Equal(t, fx.IdentityProvider, c.Stamp().Provider)
	repo.AssertNotCalled(t, "FindForDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConvertToUSD_AmountTimesRate(t *testing.T) {
	svc := NewConversionService(fallbackOnlyProvider(), 8)

	c, err := svc.ConvertToUSD(context.Background(), decimal.NewFromInt(1000), valueobject.BRL)
	require.NoError(t, err)
	assert.True(t, c.FXRate.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, c.USDAmount().Equal(decimal.NewFromInt(1000).Mul(c.FXRate)))
	assert.Equal(t, fx.SourceFallback, c.Source)

	stamp := c.Stamp()
	assert.True(t, stamp.Rate.Equal(c.FXRate))
	assert.Equal(t, "FALLBACK", stamp.Source)
	assert.Equal(t, fx.FallbackProvider, stamp.Provider)
	assert.NoError(t, stamp.Validate())
}

func TestConvertToUSD_EURUsesInverseOfFallback(t *testing.T) {
	svc := NewConversionService(fallbackOnlyProvider(), 8)

	c, err := svc.ConvertToUSD(context.Background(), decimal.NewFromInt(100), valueobject.EUR)
	require.NoError(t, err)
	assert.True(t, c.FXRate.Equal(decimal.RequireFromString("1.08695652")), "got %s", c.FXRate)
}

func TestConvert_RoundTrip(t *testing.T) {
	svc := NewConversionService(fallbackOnlyProvider(), 8)
	amount := decimal.RequireFromString("250.00")

	there, err := svc.Convert(context.Background(), amount, valueobject.EUR, valueobject.GBP)
	require.NoError(t, err)
	back, err := svc.Convert(context.Background(), there.Converted, valueobject.GBP, valueobject.EUR)
	require.NoError(t, err)

	diff := back.Converted.Sub(amount).Abs()
	assert.True(t, diff.LessThan(decimal.RequireFromString("0.0001")), "round trip drifted by %s", diff)
}

func TestConvertFromUSD(t *testing.T) {
	svc := NewConversionService(fallbackOnlyProvider(), 8)

	c, err := svc.ConvertFromUSD(context.Background(), decimal.NewFromInt(10), valueobject.CAD)
	require.NoError(t, err)
	assert.Equal(t, valueobject.CAD, c.Target)
	assert.True(t, c.Converted.Equal(decimal.RequireFromString("13.6")))
}

func TestConvert_InvalidCurrency(t *testing.T) {
	svc := NewConversionService(fallbackOnlyProvider(), 8)
	_, err := svc.Convert(context.Background(), decimal.NewFromInt(1), "XX1", valueobject.USD)
	assert.ErrorIs(t, err, shared.ErrInvalidCurrency)
}
