package fx

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Table holds rates as units of each currency per 1 unit of Base
type Table struct {
	Base  valueobject.Currency
	Date  time.Time
	Rates map[valueobject.Currency]decimal.Decimal
}

// FallbackProvider labels rates served from the static table
const FallbackProvider = "static-fallback"

// IdentityProvider labels the 1:1 rate of a currency against itself
const IdentityProvider = "identity"

// FallbackTable returns the static USD table used when the rate API is unreachable
func FallbackTable() Table {
	return Table{
		Base: valueobject.USD,
		Date: DateOf(time.Now()),
		Rates: map[valueobject.Currency]decimal.Decimal{
			valueobject.USD: decimal.NewFromInt(1),
			valueobject.BRL: decimal.RequireFromString("5.0"),
			valueobject.EUR: decimal.RequireFromString("0.92"),
			valueobject.GBP: decimal.RequireFromString("0.79"),
			valueobject.CAD: decimal.RequireFromString("1.36"),
		},
	}
}

// unitsPer returns how many units of c equal one unit of t.Base
func (t Table) unitsPer(c valueobject.Currency) (decimal.Decimal, bool) {
	if c == t.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[c]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// Cross derives rate(base→quote) = units(quote)/units(base)
func (t Table) Cross(base, quote valueobject.Currency) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	b, ok := t.unitsPer(base)
	if !ok {
		return decimal.Zero, ErrRateUnavailable
	}
	q, ok := t.unitsPer(quote)
	if !ok {
		return decimal.Zero, ErrRateUnavailable
	}
	return q.Div(b), nil
}

// Rebase expresses the same table relative to newBase
func (t Table) Rebase(newBase valueobject.Currency) (Table, error) {
	if newBase == t.Base {
		return t.clone(), nil
	}
	pivot, ok := t.unitsPer(newBase)
	if !ok {
		return Table{}, ErrRateUnavailable
	}
	out := Table{
		Base:  newBase,
		Date:  t.Date,
		Rates: make(map[valueobject.Currency]decimal.Decimal, len(t.Rates)+1),
	}
	out.Rates[t.Base] = decimal.NewFromInt(1).Div(pivot)
	for c, r := range t.Rates {
		out.Rates[c] = r.Div(pivot)
	}
	out.Rates[newBase] = decimal.NewFromInt(1)
	return out, nil
}

// Currencies lists every currency covered by the table
func (t Table) Currencies() []valueobject.Currency {
	out := make([]valueobject.Currency, 0, len(t.Rates)+1)
	seen := map[valueobject.Currency]bool{t.Base: true}
	out = append(out, t.Base)
	for c := range t.Rates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// RateRows flattens the table into persisted rows keyed on Base
func (t Table) RateRows(provider string) []*Rate {
	rows := make([]*Rate, 0, len(t.Rates))
	for c, r := range t.Rates {
		if c == t.Base {
			continue
		}
		row, err := NewRate(t.Date, t.Base, c, r, provider)
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (t Table) clone() Table {
	rates := make(map[valueobject.Currency]decimal.Decimal, len(t.Rates))
	for c, r := range t.Rates {
		rates[c] = r
	}
	return Table{Base: t.Base, Date: t.Date, Rates: rates}
}
