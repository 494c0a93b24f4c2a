package fx

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Source identifies where a rate came from
type Source string

const (
	SourceIdentity Source = "IDENTITY"
	SourceTable    Source = "TABLE"
	SourceAPI      Source = "API"
	SourceFallback Source = "FALLBACK"
)

// Rate is one persisted daily rate: 1 Base = Rate Quote on RateDate.
// (RateDate, BaseCurrency, QuoteCurrency) is unique.
type Rate struct {
	shared.BaseEntity
	RateDate      time.Time
	BaseCurrency  valueobject.Currency
	QuoteCurrency valueobject.Currency
	Rate          decimal.Decimal
	Provider      string
	FetchedAt     time.Time
}

// NewRate validates and builds a daily rate row
func NewRate(day time.Time, base, quote valueobject.Currency, rate decimal.Decimal, provider string) (*Rate, error) {
	if base == "" || quote == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Base and quote currency are required")
	}
	if base == quote {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Base and quote currency must differ")
	}
	if !rate.IsPositive() {
		return nil, ErrInvalidRate
	}
	return &Rate{
		BaseEntity:    shared.NewBaseEntity(),
		RateDate:      DateOf(day),
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          rate,
		Provider:      provider,
		FetchedAt:     time.Now(),
	}, nil
}

// Inverse returns 1/Rate
func (r *Rate) Inverse() decimal.Decimal {
	return decimal.NewFromInt(1).Div(r.Rate)
}

// Quote is a resolved rate between two currencies
type Quote struct {
	Base      valueobject.Currency `json:"base"`
	Quote     valueobject.Currency `json:"quote"`
	Rate      decimal.Decimal      `json:"rate"`
	Source    Source               `json:"source"`
	Provider  string               `json:"provider,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// IdentityQuote is the 1:1 quote for a currency against itself
func IdentityQuote(c valueobject.Currency) Quote {
	return Quote{
		Base:      c,
		Quote:     c,
		Rate:      decimal.NewFromInt(1),
		Source:    SourceIdentity,
		Provider:  IdentityProvider,
		Timestamp: time.Now(),
	}
}

// DateOf truncates t to midnight UTC of its calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
