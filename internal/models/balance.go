package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money is stored with cents precision
const AmountPlaces = 2

// Whether amount is positive and has no fraction below cents
func IsValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(AmountPlaces))
}

// Current user funds. Never negative
type Balance struct {
	UserID uuid.UUID
	Amount decimal.Decimal
}

// Balance top-up. Only credits made by the user are logged, order debits and refunds are not
type BalanceHistory struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	Amount    decimal.Decimal
}
