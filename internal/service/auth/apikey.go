package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
)

const (
	apiKeyPrefixBytes = 6
	apiKeySecretBytes = 24
	apiKeySeparator   = "."
)

// Create new API key for the user; the previous key stops working
// The key is returned once, only its hash is kept
func (s *AuthService) IssueAPIKey(ctx context.Context, user models.User) (string, error) {
	prefix, err := randomHex(apiKeyPrefixBytes)
	if err != nil {
		return "", fmt.Errorf("can't generate api key. Err: %w", err)
	}
	secret, err := randomHex(apiKeySecretBytes)
	if err != nil {
		return "", fmt.Errorf("can't generate api key. Err: %w", err)
	}
	key := prefix + apiKeySeparator + secret

	_, err = s.storage.APIKey().Save(ctx, models.APIKey{
		ID:        uuid.New(),
		UserID:    user.ID,
		Prefix:    prefix,
		HashedKey: hashAPIKey(key),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("can't save api key. Err: %w", err)
	}

	s.forgetAPIKeys(user.ID)
	return key, nil
}

// Resolve user by API key from request auth header
func (s *AuthService) GetUserFromAPIKey(ctx context.Context, r *http.Request) (models.User, error) {
	key, err := s.credentials(r, s.apiKeyAuthScheme)
	if err != nil {
		return models.User{}, err
	}

	hashed := hashAPIKey(key)
	if cached, ok := s.keys.Get(hashed); ok {
		return cached.(models.User), nil
	}

	prefix, _, ok := strings.Cut(key, apiKeySeparator)
	if !ok {
		return models.User{}, apperrors.ErrAPIKeyNotFound
	}

	stored, err := s.storage.APIKey().GetByPrefix(ctx, prefix)
	if err != nil {
		return models.User{}, err
	}
	if subtle.ConstantTimeCompare([]byte(stored.HashedKey), []byte(hashed)) != 1 {
		return models.User{}, apperrors.ErrAPIKeyNotFound
	}

	user, err := s.users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return models.User{}, err
	}

	s.keys.Set(hashed, user, cache.DefaultExpiration)
	return user, nil
}

// Drop resolved keys of the user from cache
func (s *AuthService) forgetAPIKeys(userID uuid.UUID) {
	for hashed, item := range s.keys.Items() {
		if u, ok := item.Object.(models.User); ok && u.ID == userID {
			s.keys.Delete(hashed)
		}
	}
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
