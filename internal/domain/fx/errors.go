package fx

import "github.com/finadmin/backend/internal/domain/shared"

var (
	ErrInvalidRate     = shared.NewDomainError("INVALID_RATE", "Exchange rate must be positive")
	ErrRateUnavailable = shared.NewDomainError("RATE_UNAVAILABLE", "No exchange rate available for currency pair")
)
