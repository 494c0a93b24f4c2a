package fx

import (
	"context"
	"time"

	"github.com/finadmin/backend/internal/domain/shared/valueobject"
)

// RateRepository persists the daily rate table
type RateRepository interface {
	// FindForDay returns the row for (day, base, quote) or shared.ErrNotFound
	FindForDay(ctx context.Context, day time.Time, base, quote valueobject.Currency) (*Rate, error)
	// FindAllForDay returns every row on day whose base currency is base
	FindAllForDay(ctx context.Context, day time.Time, base valueobject.Currency) ([]Rate, error)
	// ExistsForDay reports whether any row is stored for day
	ExistsForDay(ctx context.Context, day time.Time) (bool, error)
	// Upsert inserts rows, overwriting rate/provider on (date, base, quote) conflicts
	Upsert(ctx context.Context, rates ...*Rate) error
}

// Snapshot is one response from the rate API
type Snapshot struct {
	Table     Table
	Provider  string
	FetchedAt time.Time
	Raw       []byte
}

// RateFeed fetches the latest rate table from an external provider
type RateFeed interface {
	FetchLatest(ctx context.Context, base valueobject.Currency) (*Snapshot, error)
}

// RateCache holds resolved quotes for a bounded time
type RateCache interface {
	Get(ctx context.Context, base, quote valueobject.Currency) (Quote, bool)
	Set(ctx context.Context, q Quote) error
	Clear(ctx context.Context) error
}

// SnapshotArchiver keeps a copy of raw rate API payloads
type SnapshotArchiver interface {
	Archive(ctx context.Context, s *Snapshot) error
}
