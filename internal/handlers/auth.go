package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/handlers/render"
	"github.com/nkiryanov/smsorders/internal/logger"
)

type credentials struct {
	Login    string `json:"login" validate:"required,min=2,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentials](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Register(r.Context(), data.Login, data.Password)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
			return
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, messageResponse{Message: "User registered successfully"})
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Login, data.Password)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusUnauthorized)
			return
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, messageResponse{Message: "User logged in successfully"})
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetRefreshString(r)
		if err != nil {
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			return
		}

		pair, err := authService.RefreshPair(r.Context(), refresh)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
			return
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound), errors.Is(err, apperrors.ErrRefreshTokenIsUsed):
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			return
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, messageResponse{Message: "Tokens refreshed successfully"})
	})
}
