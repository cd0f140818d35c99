package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
)

type APIKeyRepo struct {
	DB DBTX
}

// One key per user: saving a new key replaces the old one
const saveAPIKey = `-- name: SaveAPIKey
INSERT INTO api_keys (id, user_id, prefix, hashed_key, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE
SET id = EXCLUDED.id, prefix = EXCLUDED.prefix, hashed_key = EXCLUDED.hashed_key, created_at = EXCLUDED.created_at
RETURNING id, user_id, prefix, hashed_key, created_at
`

func (r *APIKeyRepo) Save(ctx context.Context, key models.APIKey) (models.APIKey, error) {
	rows, _ := r.DB.Query(ctx, saveAPIKey, key.ID, key.UserID, key.Prefix, key.HashedKey, key.CreatedAt)
	saved, err := pgx.CollectOneRow(rows, rowToAPIKey)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return saved, apperrors.ErrUserNotFound
		}

		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getAPIKeyByPrefix = `-- name: GetAPIKeyByPrefix
SELECT id, user_id, prefix, hashed_key, created_at FROM api_keys
WHERE prefix = $1
`

func (r *APIKeyRepo) GetByPrefix(ctx context.Context, prefix string) (models.APIKey, error) {
	rows, _ := r.DB.Query(ctx, getAPIKeyByPrefix, prefix)
	key, err := pgx.CollectOneRow(rows, rowToAPIKey)

	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, pgx.ErrNoRows):
		return key, apperrors.ErrAPIKeyNotFound
	default:
		return key, fmt.Errorf("db error: %w", err)
	}
}

func rowToAPIKey(row pgx.CollectableRow) (models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.Prefix, &k.HashedKey, &k.CreatedAt)
	return k, err
}
