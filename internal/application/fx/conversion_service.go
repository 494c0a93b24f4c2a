package fx

import (
	"context"
	"time"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultRateScale is the number of decimal places kept on a stamped rate
const DefaultRateScale int32 = 8

// RateSource resolves a quote for a currency pair
type RateSource interface {
	GetRate(ctx context.Context, base, quote valueobject.Currency, asOf time.Time) (fx.Quote, error)
}

// Conversion is an amount expressed in a target currency together with the rate used
type Conversion struct {
	Amount    decimal.Decimal      `json:"amount"`
	Currency  valueobject.Currency `json:"currency"`
	Converted decimal.Decimal      `json:"converted"`
	Target    valueobject.Currency `json:"target"`
	FXRate    decimal.Decimal      `json:"fx_rate"`
	Source    fx.Source            `json:"source"`
	Provider  string               `json:"provider,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// USDAmount is the converted amount when the target is USD
func (c Conversion) USDAmount() decimal.Decimal {
	return c.Converted
}

// Stamp is the rate provenance recorded on ledger entries and settlements
func (c Conversion) Stamp() finance.FxStamp {
	return finance.FxStamp{
		Rate:      c.FXRate,
		Source:    string(c.Source),
		Provider:  c.Provider,
		Timestamp: c.Timestamp,
	}
}

// ConversionService converts amounts through the rate provider
type ConversionService struct {
	rates RateSource
	scale int32
	now   func() time.Time
}

// NewConversionService creates a ConversionService. A non-positive scale uses DefaultRateScale.
func NewConversionService(rates RateSource, scale int32) *ConversionService {
	if scale <= 0 {
		scale = DefaultRateScale
	}
	return &ConversionService{
		rates: rates,
		scale: scale,
		now:   time.Now,
	}
}

// ConvertToUSD converts amount into USD at today's rate. USD never touches the provider.
func (s *ConversionService) ConvertToUSD(ctx context.Context, amount decimal.Decimal, currency valueobject.Currency) (*Conversion, error) {
	return s.Convert(ctx, amount, currency, valueobject.USD)
}

// ConvertFromUSD converts a USD amount into target
func (s *ConversionService) ConvertFromUSD(ctx context.Context, amount decimal.Decimal, target valueobject.Currency) (*Conversion, error) {
	return s.Convert(ctx, amount, valueobject.USD, target)
}

// Convert converts amount from one currency to another; non-USD pairs pivot through USD
func (s *ConversionService) Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (*Conversion, error) {
	if !valueobject.IsValidCurrency(string(from)) || !valueobject.IsValidCurrency(string(to)) {
		return nil, shared.ErrInvalidCurrency
	}
	if from == to {
		q := fx.IdentityQuote(from)
		return &Conversion{
			Amount:    amount,
			Currency:  from,
			Converted: amount,
			Target:    to,
			FXRate:    q.Rate,
			Source:    q.Source,
			Provider:  q.Provider,
			Timestamp: q.Timestamp,
		}, nil
	}

	q, err := s.rates.GetRate(ctx, from, to, s.now())
	if err != nil {
		return nil, err
	}
	rate := q.Rate.Round(s.scale)
	return &Conversion{
		Amount:    amount,
		Currency:  from,
		Converted: amount.Mul(rate),
		Target:    to,
		FXRate:    rate,
		Source:    q.Source,
		Provider:  q.Provider,
		Timestamp: q.Timestamp,
	}, nil
}
