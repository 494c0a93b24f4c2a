package event

import (
	"context"

	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// HandlerFunc adapts a function to shared.EventHandler
type HandlerFunc struct {
	Fn    func(ctx context.Context, event shared.DomainEvent) error
	Types []string
}

// Handle calls Fn
func (h *HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.Fn(ctx, event)
}

// EventTypes returns Types
func (h *HandlerFunc) EventTypes() []string {
	return h.Types
}

// LogHandler writes a structured line for each ledger, settlement, contract and rate event
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a LogHandler
func NewLogHandler(log *zap.Logger) *LogHandler {
	return &LogHandler{logger: log.Named("domain_event")}
}

// EventTypes lists the events written to the log
func (h *LogHandler) EventTypes() []string {
	return []string{
		finance.EventTypeLedgerEntryCreated,
		finance.EventTypeLedgerEntryRestamped,
		finance.EventTypeLedgerEntryCancelled,
		finance.EventTypeLedgerEntryStatusChanged,
		finance.EventTypeSettlementRecorded,
		contract.EventTypeContractCreated,
		contract.EventTypeContractItemBilled,
		fx.EventTypeRatesRefreshed,
	}
}

// Handle logs the event envelope plus the fields that matter for each type
func (h *LogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}
	switch e := event.(type) {
	case *finance.LedgerEntryStatusChangedEvent:
		fields = append(fields,
			zap.String("from", string(e.PreviousStatus)),
			zap.String("to", string(e.Status)),
			zap.String("settled_usd", e.SettledUsdAmount.String()),
		)
	case *finance.SettlementRecordedEvent:
		fields = append(fields,
			zap.String("amount", e.Amount.String()),
			zap.String("currency", string(e.Currency)),
			zap.String("usd_equiv", e.UsdEquivAmount.String()),
		)
	case *fx.RatesRefreshedEvent:
		fields = append(fields,
			zap.String("provider", e.Provider),
			zap.Int("count", e.Count),
		)
	}
	logger.WithLogger(ctx, h.logger).Info("domain event", fields...)
	return nil
}
