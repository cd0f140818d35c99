package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/models"
)

// Storage gives access to all repositories
// Repositories returned by storage passed to InTx callback share one transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	APIKey() APIKeyRepo
	Balance() BalanceRepo
	Order() OrderRepo

	// Run fn in transaction. Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

type RefreshTokenRepo interface {
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return token even it expired or used already
	// If not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Mark token as used and return it
	// Has to return apperrors.ErrRefreshTokenIsUsed if token was used before
	GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error)
}

type APIKeyRepo interface {
	// Create key for the user or replace existed one
	// User may have only one key at the moment
	Save(ctx context.Context, key models.APIKey) (models.APIKey, error)

	// If not found must return apperrors.ErrAPIKeyNotFound
	GetByPrefix(ctx context.Context, prefix string) (models.APIKey, error)
}

type BalanceRepo interface {
	// Create zero balance for the user
	CreateBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)

	// If balance not found must return apperrors.ErrUserNotFound
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)

	// Whether the user has at least amount on the balance
	HasBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)

	// Atomically add delta (may be negative) to the balance
	// Has to return apperrors.ErrBalanceInsufficient and leave balance untouched if it would become negative
	UpdateBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (models.Balance, error)

	CreateHistory(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.BalanceHistory, error)

	// Top-ups of the user, newest first
	ListHistory(ctx context.Context, userID uuid.UUID) ([]models.BalanceHistory, error)
}

// Order list filters
type ListOrdersOpts struct {
	// Return orders with the statuses only; all orders if empty
	Statuses []string
}

type OrderRepo interface {
	// Has to return apperrors.ErrOrderActivationIDConflict if activation id is used already
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)

	// Get user order and lock it till the end of transaction
	// If not found (or belongs to someone else) must return apperrors.ErrOrderNotFound
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID, userID uuid.UUID) (models.Order, error)

	// Get order by provider activation id and lock it till the end of transaction
	// If not found must return apperrors.ErrOrderNotFound
	GetOrderByActivationIDForUpdate(ctx context.Context, activationID string) (models.Order, error)

	// User orders newest first, with received SMS codes
	ListOrders(ctx context.Context, userID uuid.UUID, opts ListOrdersOpts) ([]models.Order, error)

	SetStatus(ctx context.Context, orderID uuid.UUID, status string) (models.Order, error)

	// Move user pending orders created before createdBefore to expired
	// createdBefore is models.ExpiryCutoff, the same bound Order.HasExpired checks
	// Return expired orders so the caller refunds them
	ExpirePending(ctx context.Context, userID uuid.UUID, createdBefore time.Time) ([]models.Order, error)

	AddSms(ctx context.Context, orderID uuid.UUID, code string) (models.OrderSms, error)
}
