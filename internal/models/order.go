package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/apperrors"
)

const (
	OrderStatusSmsPending = "sms_pending"
	OrderStatusSuccess    = "success"
	OrderStatusFinished   = "finished"
	OrderStatusExpired    = "expired"
	OrderStatusCancelled  = "cancelled"
)

// Time the user waits for SMS before pending order becomes expired
const OrderLifetime = 20 * time.Minute

// Statuses of orders the user still works with
var OrderActiveStatuses = []string{OrderStatusSmsPending, OrderStatusSuccess}

type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Country      string
	Service      string
	ActivationID string // provider side id, unique across all orders
	Number       string
	Status       string
	CreatedAt    time.Time
	Amount       decimal.Decimal // price debited on order placement

	// Codes received for the order, oldest first
	// Filled on listing only
	SmsCodes []string
}

// SMS code received for the order from provider
type OrderSms struct {
	ID         int64
	OrderID    uuid.UUID
	Code       string
	ReceivedAt time.Time
}

// Orders created before the cutoff have outlived their lifetime
func ExpiryCutoff(now time.Time) time.Time {
	return now.Add(-OrderLifetime)
}

// Whether the order outlived its lifetime. Status is not taken into account
func (o Order) HasExpired(now time.Time) bool {
	return o.CreatedAt.Before(ExpiryCutoff(now))
}

// Whether the order is pending and has to be moved to expired on the next touch
func (o Order) IsStale(now time.Time) bool {
	return o.Status == OrderStatusSmsPending && o.HasExpired(now)
}

// Return status the order moves to when the user cancels it
// Cancelled and expired orders are refunded
func (o Order) CancelStatus(now time.Time) (string, error) {
	switch o.Status {
	case OrderStatusSmsPending:
		if o.HasExpired(now) {
			return OrderStatusExpired, nil
		}
		return OrderStatusCancelled, nil
	case OrderStatusSuccess:
		return "", apperrors.ErrOrderAlreadySuccessful
	case OrderStatusFinished:
		return "", apperrors.ErrOrderAlreadyFinished
	case OrderStatusCancelled:
		return "", apperrors.ErrOrderAlreadyCancelled
	case OrderStatusExpired:
		return "", apperrors.ErrOrderAlreadyExpired
	default:
		return "", fmt.Errorf("unknown order status %q", o.Status)
	}
}

// Return status the order moves to when the user confirms the code was used
// Finishing finished order is not an error, status remains the same
func (o Order) FinishStatus() (string, error) {
	switch o.Status {
	case OrderStatusSuccess, OrderStatusFinished:
		return OrderStatusFinished, nil
	case OrderStatusSmsPending:
		return "", apperrors.ErrOrderSmsPending
	case OrderStatusCancelled:
		return "", apperrors.ErrOrderAlreadyCancelled
	case OrderStatusExpired:
		return "", apperrors.ErrOrderAlreadyExpired
	default:
		return "", fmt.Errorf("unknown order status %q", o.Status)
	}
}
