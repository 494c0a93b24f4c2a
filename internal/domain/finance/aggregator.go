package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecomputeMode selects how the aggregator may move an entry's status
type RecomputeMode int

const (
	// RecomputeMonotonic never moves an entry backwards (OPEN < PARTIAL < PAID)
	RecomputeMonotonic RecomputeMode = iota
	// RecomputeReversal allows PAID/PARTIAL to fall back after a reversal
	RecomputeReversal
)

// DeriveStatus computes the status implied by settledUSD against amountUSD.
//
//	CANCELLED           -> CANCELLED
//	settled >= amount   -> PAID
//	0 < settled < amount -> PARTIAL
//	settled <= 0        -> unchanged (OPEN in reversal mode)
func DeriveStatus(current EntryStatus, amountUSD, settledUSD decimal.Decimal, mode RecomputeMode) EntryStatus {
	if current == EntryStatusCancelled {
		return current
	}

	var derived EntryStatus
	switch {
	case settledUSD.IsPositive() && settledUSD.GreaterThanOrEqual(amountUSD):
		derived = EntryStatusPaid
	case settledUSD.IsPositive():
		derived = EntryStatusPartial
	default:
		if mode == RecomputeReversal {
			return EntryStatusOpen
		}
		return current
	}

	if mode == RecomputeMonotonic && derived.rank() < current.rank() {
		return current
	}
	return derived
}

// SettlementAggregator folds an entry's settlement log into its status
type SettlementAggregator struct {
	now func() time.Time
}

// NewSettlementAggregator creates an aggregator using the wall clock
func NewSettlementAggregator() *SettlementAggregator {
	return &SettlementAggregator{now: time.Now}
}

// Apply sums records, updates entry and reports whether the status changed.
// Callers persist the entry only when changed is true.
func (a *SettlementAggregator) Apply(entry *LedgerEntry, records []SettlementRecord, mode RecomputeMode) (changed bool) {
	settled := SumUSD(records)
	entry.SettledUsdAmount = settled

	previous := entry.Status
	next := DeriveStatus(previous, entry.UsdEquivAmount, settled, mode)
	if next == previous {
		return false
	}

	now := a.now()
	entry.Status = next
	entry.UpdatedAt = now
	if next == EntryStatusPaid {
		entry.PaidAt = &now
	} else {
		entry.PaidAt = nil
	}
	entry.IncrementVersion()
	entry.AddDomainEvent(NewLedgerEntryStatusChangedEvent(entry, previous, settled))
	return true
}
