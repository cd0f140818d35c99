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
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
)

type BalanceRepo struct {
	DB DBTX
}

const createBalance = `-- name: CreateBalance
INSERT INTO balances (user_id, amount)
VALUES ($1, 0)
RETURNING user_id, amount
`

func (r *BalanceRepo) CreateBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, createBalance, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
			return balance, fmt.Errorf("user balance already exists: %w", err)
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
			return balance, apperrors.ErrUserNotFound
		}

		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

const getBalance = `-- name: GetBalance
SELECT user_id, amount FROM balances
WHERE user_id = $1
`

func (r *BalanceRepo) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, getBalance, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return balance, apperrors.ErrUserNotFound
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

const hasBalance = `-- name: HasBalance
SELECT EXISTS (
	SELECT 1 FROM balances
	WHERE user_id = $1 AND amount >= $2
)
`

// Read only check, the balance may change right after it
// Debit with UpdateBalance to be sure funds are enough
func (r *BalanceRepo) HasBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	rows, _ := r.DB.Query(ctx, hasBalance, userID, amount)
	ok, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

const updateBalance = `-- name: UpdateBalance
UPDATE balances
SET amount = amount + $2
WHERE user_id = $1 AND amount + $2 >= 0
RETURNING user_id, amount
`

func (r *BalanceRepo) UpdateBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, updateBalance, userID, delta)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either there is no balance at all or funds are not enough
		if _, err := r.GetBalance(ctx, userID); err != nil {
			return balance, err
		}
		return balance, apperrors.ErrBalanceInsufficient
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

const createHistory = `-- name: CreateBalanceHistory
INSERT INTO balance_history (id, user_id, created_at, amount)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, created_at, amount
`

func (r *BalanceRepo) CreateHistory(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.BalanceHistory, error) {
	rows, _ := r.DB.Query(ctx, createHistory, uuid.New(), userID, time.Now(), amount)
	entry, err := pgx.CollectOneRow(rows, rowToBalanceHistory)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return entry, apperrors.ErrAmountInvalid
		}

		return entry, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

const listHistory = `-- name: ListBalanceHistory
SELECT id, user_id, created_at, amount FROM balance_history
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *BalanceRepo) ListHistory(ctx context.Context, userID uuid.UUID) ([]models.BalanceHistory, error) {
	rows, _ := r.DB.Query(ctx, listHistory, userID)
	history, err := pgx.CollectRows(rows, rowToBalanceHistory)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return history, nil
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.UserID, &b.Amount)
	return b, err
}

func rowToBalanceHistory(row pgx.CollectableRow) (models.BalanceHistory, error) {
	var h models.BalanceHistory
	err := row.Scan(&h.ID, &h.UserID, &h.CreatedAt, &h.Amount)
	return h, err
}
