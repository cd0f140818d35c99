package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/testutil"
)

func Test_APIKeyRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(t *testing.T, fn func(repo APIKeyRepo, user models.User)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			user, err := users.CreateUser(t.Context(), "key-owner", "hashedpassword")
			require.NoError(t, err)

			fn(APIKeyRepo{DB: tx}, user)
		})
	}

	newKey := func(userID uuid.UUID, prefix string) models.APIKey {
		return models.APIKey{
			ID:        uuid.New(),
			UserID:    userID,
			Prefix:    prefix,
			HashedKey: "hashed-" + prefix,
			CreatedAt: testutil.MustParseTime("2024-01-01 19:00:01Z"),
		}
	}

	t.Run("save and get", func(t *testing.T) {
		withTx(t, func(repo APIKeyRepo, user models.User) {
			key := newKey(user.ID, "abcd1234")

			saved, err := repo.Save(t.Context(), key)
			require.NoError(t, err)
			require.Equal(t, key.ID, saved.ID)

			got, err := repo.GetByPrefix(t.Context(), "abcd1234")
			require.NoError(t, err)
			require.Equal(t, user.ID, got.UserID)
			require.Equal(t, "hashed-abcd1234", got.HashedKey)
			require.WithinDuration(t, key.CreatedAt, got.CreatedAt, time.Microsecond)
		})
	})

	t.Run("save replaces user key", func(t *testing.T) {
		withTx(t, func(repo APIKeyRepo, user models.User) {
			_, err := repo.Save(t.Context(), newKey(user.ID, "first111"))
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newKey(user.ID, "second22"))
			require.NoError(t, err)

			_, err = repo.GetByPrefix(t.Context(), "first111")
			require.ErrorIs(t, err, apperrors.ErrAPIKeyNotFound, "old key has to be replaced")

			got, err := repo.GetByPrefix(t.Context(), "second22")
			require.NoError(t, err)
			require.Equal(t, user.ID, got.UserID)
		})
	})

	t.Run("save for unknown user", func(t *testing.T) {
		withTx(t, func(repo APIKeyRepo, _ models.User) {
			_, err := repo.Save(t.Context(), newKey(uuid.New(), "nobody00"))

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
