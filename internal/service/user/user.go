package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/repository"
)

type UserService struct {
	hasher  PasswordHasher
	storage repository.Storage
}

func NewService(hasher PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = DefaultHasher
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

// Create user together with zero balance
func (s *UserService) CreateUser(ctx context.Context, username string, password string) (models.User, error) {
	var user models.User
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		user, err = storage.User().CreateUser(ctx, username, hash)
		if err != nil {
			return err
		}

		_, err = storage.Balance().CreateBalance(ctx, user.ID)
		return err
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Return user if password matches
// Unknown user and wrong password are not distinguished, both are apperrors.ErrUserNotFound
func (s *UserService) Login(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("can't get user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

func (s *UserService) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	return s.storage.Balance().GetBalance(ctx, userID)
}

// Credit user balance and keep the top-up in history
func (s *UserService) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Balance, error) {
	var balance models.Balance

	if !models.IsValidAmount(amount) {
		return balance, apperrors.ErrAmountInvalid
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		balance, err = storage.Balance().UpdateBalance(ctx, userID, amount)
		if err != nil {
			return err
		}

		_, err = storage.Balance().CreateHistory(ctx, userID, amount)
		return err
	})
	if err != nil {
		return models.Balance{}, fmt.Errorf("can't top up balance. Err: %w", err)
	}

	return balance, nil
}

// User top-ups, newest first
func (s *UserService) ListTopUps(ctx context.Context, userID uuid.UUID) ([]models.BalanceHistory, error) {
	return s.storage.Balance().ListHistory(ctx, userID)
}
