package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/repository"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultAPIKeyAuthScheme  = "Api-Key"
	defaultRefreshCookieName = "refreshtoken"
	defaultAPIKeyCacheTTL    = time.Minute
)

type Config struct {
	// Header and auth scheme to send access token (or API key) in
	AccessHeaderName string
	AccessAuthScheme string
	APIKeyAuthScheme string

	// Cookie to keep refresh token in
	RefreshCookieName string

	// How long resolved API keys are kept in memory
	APIKeyCacheTTL time.Duration
}

type tokenManager interface {
	GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error)
	UseRefresh(ctx context.Context, refresh string) (models.RefreshToken, error)
	ParseAccess(ctx context.Context, access string) (uuid.UUID, error)
	RefreshTTL() time.Duration
}

type userService interface {
	CreateUser(ctx context.Context, username string, password string) (models.User, error)
	Login(ctx context.Context, username string, password string) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

// Auth service
// Resolves users from access tokens and API keys
type AuthService struct {
	accessHeaderName  string
	accessAuthScheme  string
	apiKeyAuthScheme  string
	refreshCookieName string

	tokens  tokenManager
	users   userService
	storage repository.Storage

	// Resolved API keys: key hash -> models.User
	keys *cache.Cache
}

func NewService(cfg Config, tokens tokenManager, users userService, storage repository.Storage) (*AuthService, error) {
	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.APIKeyAuthScheme, defaultAPIKeyAuthScheme)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)

	if cfg.APIKeyCacheTTL == 0 {
		cfg.APIKeyCacheTTL = defaultAPIKeyCacheTTL
	}

	return &AuthService{
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		apiKeyAuthScheme:  cfg.APIKeyAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
		tokens:            tokens,
		users:             users,
		storage:           storage,
		keys:              cache.New(cfg.APIKeyCacheTTL, 2*cfg.APIKeyCacheTTL),
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.CreateUser(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.Login(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// Exchange refresh token to new token pair
// Refresh token can be used once
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.tokens.UseRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.tokens.GeneratePair(ctx, user)
}

func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		MaxAge:   int(s.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return "", err
	}
	if cookie.Value == "" {
		return "", errors.New("refresh token is empty")
	}

	return cookie.Value, nil
}

// Resolve user by access token
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	access, err := s.credentials(r, s.accessAuthScheme)
	if err != nil {
		return models.User{}, err
	}

	userID, err := s.tokens.ParseAccess(ctx, access)
	if err != nil {
		return models.User{}, err
	}

	return s.users.GetUserByID(ctx, userID)
}

// Return credentials of the scheme from auth header
func (s *AuthService) credentials(r *http.Request, scheme string) (string, error) {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return "", fmt.Errorf("%s header is not set", s.accessHeaderName)
	}

	value, ok := strings.CutPrefix(header, scheme+" ")
	if !ok || value == "" {
		return "", fmt.Errorf("%s header has no %s credentials", s.accessHeaderName, scheme)
	}

	return value, nil
}
