package fx

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateTypeRateTable = "FxRateTable"

	EventTypeRatesRefreshed = "FxRatesRefreshed"
)

// RatesRefreshedEvent is published after a daily table is stored
type RatesRefreshedEvent struct {
	shared.BaseDomainEvent
	RateDate time.Time `json:"rate_date"`
	Provider string    `json:"provider"`
	Count    int       `json:"count"`
}

// NewRatesRefreshedEvent creates the event; rate tables are global so TenantID is nil
func NewRatesRefreshedEvent(day time.Time, provider string, count int) *RatesRefreshedEvent {
	return &RatesRefreshedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRatesRefreshed, AggregateTypeRateTable, uuid.Nil, uuid.Nil),
		RateDate:        DateOf(day),
		Provider:        provider,
		Count:           count,
	}
}
