package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/repository"
)

type OrderRepo struct {
	DB DBTX
}

const orderColumns = `id, user_id, country, service, activation_id, number, status, created_at, amount`

const createOrder = `-- name: CreateOrder
INSERT INTO orders (id, user_id, country, service, activation_id, number, status, created_at, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

func (r *OrderRepo) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusSmsPending
	}

	rows, _ := r.DB.Query(ctx, createOrder, o.ID, o.UserID, o.Country, o.Service, o.ActivationID, o.Number, o.Status, o.CreatedAt, o.Amount)
	order, err := pgx.CollectOneRow(rows, rowToOrder)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return order, apperrors.ErrOrderActivationIDConflict
		}

		return order, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

const getOrderForUpdate = `-- name: GetOrderForUpdate
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND user_id = $2
FOR UPDATE
`

func (r *OrderRepo) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID, userID uuid.UUID) (models.Order, error) {
	rows, _ := r.DB.Query(ctx, getOrderForUpdate, orderID, userID)
	return collectOrder(rows)
}

const getOrderByActivationIDForUpdate = `-- name: GetOrderByActivationIDForUpdate
SELECT ` + orderColumns + ` FROM orders
WHERE activation_id = $1
FOR UPDATE
`

func (r *OrderRepo) GetOrderByActivationIDForUpdate(ctx context.Context, activationID string) (models.Order, error) {
	rows, _ := r.DB.Query(ctx, getOrderByActivationIDForUpdate, activationID)
	return collectOrder(rows)
}

// Codes are aggregated in subquery to keep one row per order
const listOrders = `-- name: ListOrders
SELECT ` + orderColumns + `,
	ARRAY(SELECT s.code FROM order_sms s WHERE s.order_id = o.id ORDER BY s.id) AS sms_codes
FROM orders o
WHERE user_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
ORDER BY created_at DESC
`

func (r *OrderRepo) ListOrders(ctx context.Context, userID uuid.UUID, opts repository.ListOrdersOpts) ([]models.Order, error) {
	statuses := opts.Statuses
	if statuses == nil {
		statuses = []string{}
	}

	rows, _ := r.DB.Query(ctx, listOrders, userID, statuses)
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		var o models.Order
		err := row.Scan(&o.ID, &o.UserID, &o.Country, &o.Service, &o.ActivationID, &o.Number, &o.Status, &o.CreatedAt, &o.Amount, &o.SmsCodes)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return orders, nil
}

const setOrderStatus = `-- name: SetOrderStatus
UPDATE orders
SET status = $2
WHERE id = $1
RETURNING ` + orderColumns

func (r *OrderRepo) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (models.Order, error) {
	rows, _ := r.DB.Query(ctx, setOrderStatus, orderID, status)
	return collectOrder(rows)
}

const expirePending = `-- name: ExpirePendingOrders
UPDATE orders
SET status = 'expired'
WHERE user_id = $1 AND status = 'sms_pending' AND created_at < $2
RETURNING ` + orderColumns

func (r *OrderRepo) ExpirePending(ctx context.Context, userID uuid.UUID, createdBefore time.Time) ([]models.Order, error) {
	rows, _ := r.DB.Query(ctx, expirePending, userID, createdBefore)
	orders, err := pgx.CollectRows(rows, rowToOrder)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return orders, nil
}

const addOrderSms = `-- name: AddOrderSms
INSERT INTO order_sms (order_id, code, received_at)
VALUES ($1, $2, $3)
RETURNING id, order_id, code, received_at
`

func (r *OrderRepo) AddSms(ctx context.Context, orderID uuid.UUID, code string) (models.OrderSms, error) {
	rows, _ := r.DB.Query(ctx, addOrderSms, orderID, code, time.Now())
	sms, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.OrderSms, error) {
		var s models.OrderSms
		err := row.Scan(&s.ID, &s.OrderID, &s.Code, &s.ReceivedAt)
		return s, err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return sms, apperrors.ErrOrderNotFound
		}

		return sms, fmt.Errorf("db error: %w", err)
	}

	return sms, nil
}

func collectOrder(rows pgx.Rows) (models.Order, error) {
	order, err := pgx.CollectOneRow(rows, rowToOrder)

	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, pgx.ErrNoRows):
		return order, apperrors.ErrOrderNotFound
	default:
		return order, fmt.Errorf("db error: %w", err)
	}
}

func rowToOrder(row pgx.CollectableRow) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Country, &o.Service, &o.ActivationID, &o.Number, &o.Status, &o.CreatedAt, &o.Amount)
	return o, err
}
