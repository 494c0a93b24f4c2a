package persistence

import (
	"strings"

	"github.com/finadmin/backend/internal/domain/shared"
)

// sortColumns whitelists the columns a list query may order by
type sortColumns map[string]bool

var ledgerEntrySortColumns = sortColumns{
	"created_at":        true,
	"updated_at":        true,
	"entry_number":      true,
	"counterparty_name": true,
	"original_amount":   true,
	"original_currency": true,
	"usd_equiv_amount":  true,
	"status":            true,
	"due_date":          true,
}

var contractSortColumns = sortColumns{
	"created_at":      true,
	"updated_at":      true,
	"contract_number": true,
	"customer_name":   true,
	"status":          true,
	"start_date":      true,
}

// orderClause builds "<column> <ASC|DESC>" from a filter. Unknown columns fall back
// to created_at and anything but asc sorts descending; user input never reaches SQL.
func (c sortColumns) orderClause(filter shared.Filter) string {
	column := strings.ToLower(strings.TrimSpace(filter.OrderBy))
	if !c[column] {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(filter.OrderDir), "asc") {
		dir = "ASC"
	}
	// id breaks ties so paging is stable
	return column + " " + dir + ", id " + dir
}
