package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrAPIKeyNotFound = errors.New("api key not found")

	ErrBalanceInsufficient = errors.New("insufficient balance")
	ErrAmountInvalid       = errors.New("amount should be greater than 0")

	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderCountryInvalid       = errors.New("country is invalid")
	ErrOrderServiceInvalid       = errors.New("service is invalid")
	ErrOrderActivationIDConflict = errors.New("order with activation id already exists")

	// Rejected order state transitions
	ErrOrderAlreadySuccessful = errors.New("order already successful")
	ErrOrderAlreadyFinished   = errors.New("order already finished")
	ErrOrderAlreadyCancelled  = errors.New("order already cancelled")
	ErrOrderAlreadyExpired    = errors.New("order already expired")
	ErrOrderSmsPending        = errors.New("order sms still pending")

	ErrProvisioningFailed = errors.New("number provisioning failed")
)
