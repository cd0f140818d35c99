package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/repository/postgres"
	"github.com/nkiryanov/smsorders/internal/testutil"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Negative ttl issues tokens that are already expired
	withTx := func(t *testing.T, ttl time.Duration, fn func(m *TokenManager, u models.User)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			u, err := storage.User().CreateUser(t.Context(), "sms-buyer", "hashed_password")
			require.NoError(t, err)

			m, err := New(Config{SecretKey: "test-secret-key", AccessTTL: ttl, RefreshTTL: ttl}, storage)
			require.NoError(t, err)

			fn(m, u)
		})
	}

	t.Run("New", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"}, nil)
		require.NoError(t, err)
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL)
		require.Equal(t, defaultRefreshTokenTTL, m.RefreshTTL())
		require.Equal(t, defaultSigningMethod, m.alg.Alg())

		_, err = New(Config{}, nil)
		require.ErrorContains(t, err, "secret key must not be empty")

		_, err = New(Config{SecretKey: "secret", Alg: "unknown"}, nil)
		require.ErrorContains(t, err, "unknown signing method")
	})

	t.Run("pair roundtrip", func(t *testing.T) {
		withTx(t, time.Hour, func(m *TokenManager, u models.User) {
			pair, err := m.GeneratePair(t.Context(), u)
			require.NoError(t, err)
			require.WithinDuration(t, time.Now().Add(time.Hour), pair.Access.ExpiresAt, time.Second)

			userID, err := m.ParseAccess(t.Context(), pair.Access.Value)
			require.NoError(t, err)
			require.Equal(t, u.ID, userID)

			refresh, err := m.UseRefresh(t.Context(), pair.Refresh.Value)
			require.NoError(t, err)
			require.Equal(t, u.ID, refresh.UserID)
			require.WithinDuration(t, pair.Refresh.ExpiresAt, refresh.ExpiresAt, 0)

			_, err = m.UseRefresh(t.Context(), pair.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed, "refresh token works once")

			another, err := m.GeneratePair(t.Context(), u)
			require.NoError(t, err)
			require.NotEqual(t, pair.Access.Value, another.Access.Value)
			require.NotEqual(t, pair.Refresh.Value, another.Refresh.Value)
		})
	})

	t.Run("expired pair fail", func(t *testing.T) {
		withTx(t, -time.Minute, func(m *TokenManager, u models.User) {
			pair, err := m.GeneratePair(t.Context(), u)
			require.NoError(t, err)

			_, err = m.ParseAccess(t.Context(), pair.Access.Value)
			require.ErrorIs(t, err, jwt.ErrTokenExpired)

			_, err = m.UseRefresh(t.Context(), pair.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
		})
	})

	t.Run("unknown refresh fail", func(t *testing.T) {
		withTx(t, time.Hour, func(m *TokenManager, _ models.User) {
			_, err := m.UseRefresh(t.Context(), "deadbeef")

			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("ParseAccess fail", func(t *testing.T) {
		userID := uuid.New()
		claims := AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID: userID,
		}
		sign := func(method jwt.SigningMethod, key any, c AccessTokenClaims) string {
			s, err := jwt.NewWithClaims(method, c).SignedString(key)
			require.NoError(t, err)
			return s
		}
		noExpiry := claims
		noExpiry.ExpiresAt = nil

		tests := []struct {
			name  string
			token string
		}{
			{"not a token", "invalid token"},
			{"unsigned", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims)},
			{"other key", sign(jwt.SigningMethodHS256, []byte("other-key"), claims)},
			{"other alg", sign(jwt.SigningMethodHS512, []byte("test-secret-key"), claims)},
			{"no expiry", sign(jwt.SigningMethodHS256, []byte("test-secret-key"), noExpiry)},
		}

		m, err := New(Config{SecretKey: "test-secret-key"}, nil)
		require.NoError(t, err)

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := m.ParseAccess(t.Context(), tt.token)

				require.Error(t, err)
				require.Equal(t, uuid.Nil, got)
			})
		}
	})
}
