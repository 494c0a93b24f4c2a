// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts with ToDomain and
// FromDomain, and repositories only ever touch the models.
//
// Tables:
// - fx.go: fx_rates, the global daily rate table
// - ledger.go: ledger_entries and settlement_records
// - contract.go: contracts and contract_items
package models
